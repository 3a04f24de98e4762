package gift

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

type SendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId" validate:"required,record_id"`
	GiftID     string `json:"giftId" validate:"required"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Send handles POST /gifts/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	senderID, ok := middleware.ResolveSelf(r.Context(), req.SenderID)
	if !ok {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	record, err := h.svc.SendGift(r.Context(), senderID, req.ReceiverID, req.GiftID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, map[string]interface{}{"transactionId": record.TransactionID})
}

// Catalog handles GET /gifts/catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Catalog())
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/catalog", h.Catalog)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/send", h.Send)
	})
	return r
}
