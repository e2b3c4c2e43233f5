package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/qualstore/store-backend/internal/metrics"
)

func NewRouter(h *HTTPHandler, logger *zap.Logger, m *metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)
	if logger != nil {
		r.Use(AccessLog(logger))
	}
	if m != nil {
		r.Use(Metrics(m))
	}

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/stock", h.GetProductStock)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}/status", h.UpdateOrderStatus)
			r.Delete("/{id}", h.DeleteOrder)
			r.Post("/{orderId}/items", h.AddOrderItem)
		})
		r.Route("/orderItems", func(r chi.Router) {
			r.Put("/{id}/quantity", h.ModifyOrderItemQuantity)
			r.Delete("/{id}", h.DeleteOrderItem)
		})
	})

	return r
}
