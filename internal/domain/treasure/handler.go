package treasure

import (
	"net/http"

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

type ContributeRequest struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId" validate:"required,record_id"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Contribute handles POST /rooms/{roomId}/treasure
func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req ContributeRequest
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

	res, err := h.svc.AddContribution(r.Context(), chi.URLParam(r, "roomId"), userID, req.TransactionID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, res)
}

// Mount registers the treasure routes on the rooms router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/{roomId}/treasure", h.Contribute)
}
