package recharge

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

type CreateOrderRequest struct {
	UserID    string `json:"userId"`
	AmountInr int64  `json:"amountInr" validate:"required,gt=0"`
}

type VerifyRequest struct {
	UserID    string `json:"userId"`
	OrderID   string `json:"orderId" validate:"required,record_id"`
	PaymentID string `json:"paymentId" validate:"required,record_id"`
	Signature string `json:"signature" validate:"required,max=256"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrder handles POST /recharge/order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
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

	res, err := h.svc.CreateOrder(r.Context(), userID, req.AmountInr)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, res)
}

// Verify handles POST /recharge/verify
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

	userID, ok := middleware.ResolveSelf(r.Context(), req.UserID)
	if !ok {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	res, err := h.svc.VerifyPayment(r.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, res)
}

// Packs handles GET /recharge/packs
func (h *Handler) Packs(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Packs())
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/packs", h.Packs)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/order", h.CreateOrder)
		r.Post("/verify", h.Verify)
	})
	return r
}
