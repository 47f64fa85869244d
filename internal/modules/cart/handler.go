package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Handler exposes the signed-in customer's cart.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(session.RequireRole(session.RoleCustomer))
		r.Get("/", h.view)                       // GET    /api/v1/cart
		r.Delete("/", h.clear)                   // DELETE /api/v1/cart
		r.Post("/items", h.addProduct)           // POST   /api/v1/cart/items
		r.Post("/custom", h.addCustom)           // POST   /api/v1/cart/custom
		r.Patch("/items/{id}", h.updateQuantity) // PATCH  /api/v1/cart/items/{id}
		r.Delete("/items/{id}", h.remove)        // DELETE /api/v1/cart/items/{id}
	})
}

func sessionID(r *http.Request) string {
	id, _ := session.FromContext(r.Context())
	return id.SessionID
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	httpx.Respond(w, http.StatusOK, h.service.View(sessionID(r)))
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	httpx.Respond(w, http.StatusOK, h.service.Clear(sessionID(r)))
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	v, err := h.service.AddProduct(r.Context(), sessionID(r), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, v)
}

func (h *Handler) addCustom(w http.ResponseWriter, r *http.Request) {
	var req AddCustomRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	v, err := h.service.AddCustom(r.Context(), sessionID(r), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, v)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, h.service.UpdateQuantity(sessionID(r), chi.URLParam(r, "id"), req.Quantity))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	httpx.Respond(w, http.StatusOK, h.service.Remove(sessionID(r), chi.URLParam(r, "id")))
}
