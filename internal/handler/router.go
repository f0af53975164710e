package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/HanaFlU/TechZone-sub001/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса TechZone.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productID}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateProduct)
			r.Put("/{productID}", h.UpdateProduct)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.UpsertCartItem)
			r.Delete("/items/{productID}", h.RemoveCartItem)
		})

		r.Route("/api/addresses", func(r chi.Router) {
			r.Post("/", h.CreateAddress)
			r.Get("/", h.GetAddresses)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.GetOrders)
			r.Patch("/{number}/status", h.UpdateOrderStatus)
		})

		r.Route("/api/vouchers", func(r chi.Router) {
			r.Post("/", h.CreateVoucher)
			r.Post("/apply", h.ApplyVoucher)
		})

		r.Post("/api/payments/stripe/create-intent", h.CreateIntent)
	})

	r.Post("/api/payments/stripe/webhook", h.PaymentWebhook)

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
