package agency

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
	"github.com/voxroom/voxroom-api/internal/pkg/errorhandler"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
	"github.com/voxroom/voxroom-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

type CreateRequest struct {
	UserID string `json:"userId"`
}

type BindRequest struct {
	UserID     string `json:"userId"`
	AgencyCode string `json:"agencyCode" validate:"required,max=32"`
}

type AssignRoleRequest struct {
	AdminUserID  string `json:"adminUserId"`
	TargetUserID string `json:"targetUserId" validate:"required,record_id"`
	Role         string `json:"role" validate:"required"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /agency/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
	}

	userID, ok := middleware.ResolveSelf(r.Context(), req.UserID)
	if !ok {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	node, _, err := h.svc.CreateAgency(r.Context(), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]string{"agencyCode": node.AgencyCode})
}

// Bind handles POST /agency/bind
func (h *Handler) Bind(w http.ResponseWriter, r *http.Request) {
	var req BindRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	userID, ok := middleware.ResolveSelf(r.Context(), req.UserID)
	if !ok {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	node, err := h.svc.BindAgency(r.Context(), userID, req.AgencyCode)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, node)
}

// AssignRole handles POST /agency/role
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	adminID, ok := middleware.ResolveSelf(r.Context(), req.AdminUserID)
	if !ok {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	node, err := h.svc.AssignRole(r.Context(), adminID, req.TargetUserID, Role(req.Role))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, node)
}

// Me handles GET /agency/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetAgency(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, node)
}

// Commissions handles GET /agency/me/commissions
func (h *Handler) Commissions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.ListCommissions(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]interface{}{"items": items})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/create", h.Create)
	r.Post("/bind", h.Bind)
	r.Post("/role", h.AssignRole)
	r.Get("/me", h.Me)
	r.Get("/me/commissions", h.Commissions)
	return r
}
