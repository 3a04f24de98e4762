package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
	"github.com/voxroom/voxroom-api/internal/pkg/errorhandler"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
	"github.com/voxroom/voxroom-api/internal/pkg/validator"
)

// Handler handles admin HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Verify handles POST /admin/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	grant, err := h.service.VerifyPassword(r.Context(), userID, req.Password, clientIP(r))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, grant)
}

// GetUser handles GET /admin/users/{userId}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, view)
}

// Catalog handles GET /admin/catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.service.Catalog())
}

// SetRole handles POST /admin/agency/role
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req SetRoleRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	node, err := h.service.SetRole(r.Context(), middleware.GetUserID(r.Context()), req.TargetUserID, agency.Role(req.Role))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, node)
}

// AuditLogs handles GET /admin/audit
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.service.ListAuditLogs(r.Context(), r.URL.Query().Get("adminId"), limit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]interface{}{"items": items})
}

// Audited records every successful mutating request under action.
func (h *Handler) Audited(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() < http.StatusBadRequest {
				h.service.logAction(r.Context(), middleware.GetUserID(r.Context()), action, "", "", r.Method+" "+r.URL.Path, clientIP(r))
			}
		})
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}
