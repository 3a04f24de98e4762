package wallet

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
	"github.com/voxroom/voxroom-api/internal/pkg/errorhandler"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

type createWalletRequest struct {
	UserID string `json:"userId"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /wallet/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
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

	wallet, created, err := h.svc.CreateWallet(r.Context(), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, map[string]interface{}{"created": created, "wallet": wallet})
}

// Get handles GET /wallet
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	wallet, err := h.svc.GetWallet(r.Context(), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, wallet)
}

// Transactions handles GET /wallet/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		errorhandler.Handle(r.Context(), w, econerr.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}

	response.OK(w, map[string]interface{}{"items": items})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Get)
	r.Post("/create", h.Create)
	r.Get("/transactions", h.Transactions)
	return r
}
