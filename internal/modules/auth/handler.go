package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", h.signUp)              // POST /api/v1/auth/signup
		r.Post("/signin", h.signIn)              // POST /api/v1/auth/signin
		r.Post("/signin/token", h.signInIDToken) // POST /api/v1/auth/signin/token

		r.Group(func(r chi.Router) {
			r.Use(session.Required)
			r.Get("/session", h.current)  // GET  /api/v1/auth/session
			r.Post("/signout", h.signOut) // POST /api/v1/auth/signout
		})
	})
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, res)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.service.SignIn(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, res)
}

func (h *Handler) signInIDToken(w http.ResponseWriter, r *http.Request) {
	var req IDTokenRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.service.SignInWithIDToken(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, res)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	httpx.Respond(w, http.StatusOK, id)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	if err := h.service.SignOut(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
