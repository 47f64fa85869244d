package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/catalog/{shop_id}/products", func(r chi.Router) {
		r.Get("/", h.listProducts)         // GET /api/v1/catalog/{shop_id}/products?category=&in_stock=true
		r.Get("/stream", h.streamProducts) // GET /api/v1/catalog/{shop_id}/products/stream (SSE)
		r.Get("/{id}", h.getProduct)       // GET /api/v1/catalog/{shop_id}/products/{id}

		r.Group(func(r chi.Router) {
			r.Use(session.RequireRole(session.RoleShop))
			r.Post("/", h.addProduct)             // POST   /api/v1/catalog/{shop_id}/products
			r.Post("/bulk", h.addBulk)            // POST   /api/v1/catalog/{shop_id}/products/bulk
			r.Put("/{id}", h.updateProduct)       // PUT    /api/v1/catalog/{shop_id}/products/{id}
			r.Patch("/{id}/stock", h.toggleStock) // PATCH  /api/v1/catalog/{shop_id}/products/{id}/stock
			r.Delete("/{id}", h.deleteProduct)    // DELETE /api/v1/catalog/{shop_id}/products/{id}
		})
	})
}

func filterFrom(r *http.Request) ListFilter {
	inStock, _ := strconv.ParseBool(r.URL.Query().Get("in_stock"))
	return ListFilter{Category: r.URL.Query().Get("category"), InStockOnly: inStock}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), chi.URLParam(r, "shop_id"), filterFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) streamProducts(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	sub, err := h.service.Watch(r.Context(), chi.URLParam(r, "shop_id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.StreamSnapshots(w, r, sub, func(snap gateway.Snapshot) (any, error) {
		products, err := decodeProducts(snap.Docs)
		if err != nil {
			return nil, err
		}
		out := make([]*Product, 0, len(products))
		for _, p := range products {
			if f.match(p) {
				out = append(out, p)
			}
		}
		return out, nil
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "shop_id"), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var req ProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Add(r.Context(), id, chi.URLParam(r, "shop_id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) addBulk(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var reqs []ProductRequest
	if err := httpx.Decode(r, &reqs); err != nil {
		httpx.Error(w, r, err)
		return
	}
	products, err := h.service.AddBulk(r.Context(), id, chi.URLParam(r, "shop_id"), reqs)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, products)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	var req ProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, chi.URLParam(r, "shop_id"), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) toggleStock(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	p, err := h.service.ToggleStock(r.Context(), id, chi.URLParam(r, "shop_id"), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, chi.URLParam(r, "shop_id"), chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "product deleted"})
}
