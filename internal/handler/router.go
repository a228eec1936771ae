package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/kaiken/licitaciones/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса управления тендерами.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/ping", h.Ping)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/rut/validate", h.ValidateRUT)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{sku}", h.GetProduct)
			r.Put("/{sku}", h.UpdateProduct)
		})

		r.Route("/tenders", func(r chi.Router) {
			r.Get("/", h.SearchTenders)
			r.Post("/", h.CreateTender)
			r.Get("/export", h.ExportTenders)
			r.Get("/{id}", h.GetTenderDetail)
			r.Get("/{id}/form", h.GetTender)
			r.Put("/{id}", h.UpdateTender)
		})

		r.Get("/dashboard", h.Dashboard)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
