package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Handler exposes order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(session.Required)
		r.Get("/stream", h.streamOrders) // GET /api/v1/orders/stream[?shop_id=...] (SSE)
		r.Get("/{id}", h.getOrder)       // GET /api/v1/orders/{id}

		r.With(session.RequireRole(session.RoleCustomer)).
			Get("/mine", h.listMyOrders) // GET /api/v1/orders/mine

		r.Group(func(r chi.Router) {
			r.Use(session.RequireRole(session.RoleShop))
			r.Get("/shop/{shop_id}", h.listShopOrders) // GET   /api/v1/orders/shop/{shop_id}?status=pending
			r.Patch("/{id}/status", h.updateStatus)    // PATCH /api/v1/orders/{id}/status
			r.Post("/{id}/confirm", h.confirm)         // POST  /api/v1/orders/{id}/confirm
			r.Post("/{id}/ready", h.markReady)         // POST  /api/v1/orders/{id}/ready
			r.Post("/{id}/complete", h.complete)       // POST  /api/v1/orders/{id}/complete
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	viewer, _ := session.FromContext(r.Context())
	o, err := h.service.GetOrder(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	viewer, _ := session.FromContext(r.Context())
	orders, err := h.service.ListCustomerOrders(r.Context(), viewer.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) listShopOrders(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())
	orders, err := h.service.ListShopOrders(r.Context(), owner, chi.URLParam(r, "shop_id"), r.URL.Query().Get("status"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) streamOrders(w http.ResponseWriter, r *http.Request) {
	viewer, _ := session.FromContext(r.Context())
	var (
		sub *gateway.Subscription
		err error
	)
	if viewer.IsShop() {
		shopID := r.URL.Query().Get("shop_id")
		if shopID == "" {
			httpx.Error(w, r, apperr.Invalid("shop_id", "is required"))
			return
		}
		sub, err = h.service.WatchShop(r.Context(), viewer, shopID)
	} else {
		sub, err = h.service.WatchCustomer(r.Context(), viewer.UserID)
	}
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.StreamSnapshots(w, r, sub, func(snap gateway.Snapshot) (any, error) {
		orders, err := DecodeOrders(snap.Docs)
		if err != nil {
			return nil, err
		}
		SortNewestFirst(orders)
		return orders, nil
	})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())
	var req AdvanceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.service.Advance(r.Context(), owner, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())
	var req AdvanceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.service.Confirm(r.Context(), owner, chi.URLParam(r, "id"), req.ReadyBy)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) markReady(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())
	o, err := h.service.MarkReady(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())
	o, err := h.service.Complete(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}
