package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Handler exposes the signed-in user's profile.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/users/me", func(r chi.Router) {
		r.Use(session.Required)
		r.Get("/", h.getMe)      // GET   /api/v1/users/me
		r.Patch("/", h.updateMe) // PATCH /api/v1/users/me

		// POST /api/v1/users/me/favorites/{shop_id}
		r.With(session.RequireRole(session.RoleCustomer)).Post("/favorites/{shop_id}", h.toggleFavorite)
	})
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	p, err := h.service.Get(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var req UpdateProfileRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.UpdateProfile(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	p, err := h.service.ToggleFavorite(r.Context(), id.UserID, chi.URLParam(r, "shop_id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}
