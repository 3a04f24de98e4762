package contest

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

type TickRequest struct {
	UserID string `json:"userId"`
}

type DistributeRequest struct {
	WeekKey string `json:"weekKey"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Tick handles POST /rooms/{roomId}/host-minute
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	var req TickRequest
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

	activity, err := h.svc.TickHostMinute(r.Context(), chi.URLParam(r, "roomId"), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, activity)
}

// Leaderboard handles GET /contest/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = len(Rewards)
	}

	items, err := h.svc.Leaderboard(r.Context(), r.URL.Query().Get("week"), limit)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]interface{}{"items": items})
}

// Distribute handles POST /admin/contest/distribute
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
	}

	dist, err := h.svc.DistributeRewards(r.Context(), middleware.GetUserID(r.Context()), req.WeekKey)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, map[string]interface{}{"distributed": dist.WinnerCount, "distribution": dist})
}

// Mount registers the host tick on the rooms router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/{roomId}/host-minute", h.Tick)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/leaderboard", h.Leaderboard)
	return r
}

func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/distribute", h.Distribute)
	return r
}
