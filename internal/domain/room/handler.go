package room

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

type CreateRequest struct {
	Name string `json:"name" validate:"max=80"`
}

type VoiceMemberRequest struct {
	VoiceUID string `json:"voiceUid" validate:"required,max=64"`
	Leave    bool   `json:"leave"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /rooms
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
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

	room, err := h.svc.CreateRoom(r.Context(), userID, req.Name)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.Created(w, room)
}

// Get handles GET /rooms/{roomId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.GetRoom(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, room)
}

// SetVoiceMember handles POST /rooms/{roomId}/voice
func (h *Handler) SetVoiceMember(w http.ResponseWriter, r *http.Request) {
	var req VoiceMemberRequest
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
	target := userID
	if req.Leave {
		target = ""
	}

	room, err := h.svc.SetVoiceMember(r.Context(), chi.URLParam(r, "roomId"), req.VoiceUID, target)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err)
		return
	}
	response.OK(w, room)
}

// Routes mounts the room endpoints. extra lets the treasure and contest
// handlers hang their room-scoped actions under the same prefix.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, extra ...func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/{roomId}", h.Get)
	r.Post("/{roomId}/voice", h.SetVoiceMember)
	for _, mount := range extra {
		mount(r)
	}
	return r
}
