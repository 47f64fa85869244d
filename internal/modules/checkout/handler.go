package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(session.RequireRole(session.RoleCustomer))
		r.Get("/preview", h.preview)               // GET  /api/v1/checkout/preview
		r.Post("/", h.checkout)                    // POST /api/v1/checkout
		r.Post("/shops/{shop_id}", h.checkoutShop) // POST /api/v1/checkout/shops/{shop_id}
	})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	p, err := h.service.Preview(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	res, err := h.service.Checkout(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, status(res), res)
}

func (h *Handler) checkoutShop(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	res, err := h.service.CheckoutShop(r.Context(), id, chi.URLParam(r, "shop_id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, status(res), res)
}

// status is 201 when at least one order was placed.
func status(res *Result) int {
	if len(res.Orders) == 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusCreated
}
