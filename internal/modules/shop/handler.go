package shop

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Handler exposes shop HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/shops", func(r chi.Router) {
		r.Get("/", h.listShops)         // GET /api/v1/shops?category=grocery&all=true
		r.Get("/stream", h.streamShops) // GET /api/v1/shops/stream (SSE)
		r.Get("/{id}", h.getShop)       // GET /api/v1/shops/{id}

		r.Group(func(r chi.Router) {
			r.Use(session.RequireRole(session.RoleShop))
			r.Get("/mine", h.myShop)             // GET   /api/v1/shops/mine
			r.Post("/", h.createShop)            // POST  /api/v1/shops
			r.Patch("/{id}", h.updateShop)       // PATCH /api/v1/shops/{id}
			r.Patch("/{id}/status", h.setStatus) // PATCH /api/v1/shops/{id}/status
		})
	})
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	shops, err := h.service.List(r.Context(), ListFilter{
		IncludeUnverified: all,
		Category:          r.URL.Query().Get("category"),
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, shops)
}

func (h *Handler) streamShops(w http.ResponseWriter, r *http.Request) {
	f := ListFilter{Category: r.URL.Query().Get("category")}
	sub, err := h.service.Watch(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.StreamSnapshots(w, r, sub, func(snap gateway.Snapshot) (any, error) {
		shops, err := decodeShops(snap.Docs)
		if err != nil {
			return nil, err
		}
		out := make([]*Shop, 0, len(shops))
		for _, sh := range shops {
			if f.match(sh) {
				out = append(out, sh)
			}
		}
		return out, nil
	})
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	sh, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sh)
}

func (h *Handler) myShop(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	sh, err := h.service.ForOwner(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sh)
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var seed user.ShopSeed
	if err := httpx.Decode(r, &seed); err != nil {
		httpx.Error(w, r, err)
		return
	}
	sh, err := h.service.Create(r.Context(), id, seed)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, sh)
}

func (h *Handler) updateShop(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var req UpdateShopRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	sh, err := h.service.Update(r.Context(), id, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sh)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var req SetStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	sh, err := h.service.SetStatus(r.Context(), id, chi.URLParam(r, "id"), Status(req.Status))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, sh)
}
