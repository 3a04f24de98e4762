package withdrawal

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
	UserID   string `json:"userId"`
	Diamonds int64  `json:"diamonds" validate:"required,gt=0"`
	UpiID    string `json:"upiId" validate:"omitempty,upi"`
}

type ProcessRequest struct {
	RequestID string `json:"requestId" validate:"required,record_id"`
	Action    string `json:"action" validate:"required,oneof=approve reject"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /withdrawals
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
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

	res, err := h.svc.RequestWithdrawal(r.Context(), userID, req.Diamonds, req.UpiID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, map[string]interface{}{"requestId": res.RequestID, "request": res})
}

// Process handles POST /admin/withdrawals/process
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	res, err := h.svc.ProcessWithdrawal(r.Context(), middleware.GetUserID(r.Context()), req.RequestID, Action(req.Action))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, res)
}

// List handles GET /admin/withdrawals
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		response.BadRequest(w, "Invalid status")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.svc.ListRequests(r.Context(), status, limit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]interface{}{"items": items})
}

// Export handles POST /admin/withdrawals/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.ExportPending(r.Context())
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, exp)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	return r
}

// AdminRoutes is mounted under /admin/withdrawals behind the admin claim.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/process", h.Process)
	r.Post("/export", h.Export)
	return r
}
