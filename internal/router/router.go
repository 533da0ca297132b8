package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Coupons *handler.CouponHandler
	Carts   *handler.CartHandler
	Orders  *handler.OrderHandler
	Returns *handler.ReturnHandler
}

// New creates a new HTTP router with all routes and middleware configured.
// Administrative routes require the X-API-Key header.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	admin := middleware.APIKeyAuth(apiKey, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", h.Coupons.Validate)
			r.With(admin).Get("/{code}", h.Coupons.Get)
		})

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Post("/lines", h.Carts.SetLine)
			r.Get("/available", h.Carts.Available)
			r.Delete("/", h.Carts.Clear)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Orders.GetByID)
				r.Post("/returns", h.Returns.Request)
				r.With(admin).Patch("/", h.Orders.Update)
				r.With(admin).Delete("/", h.Orders.Delete)
			})
		})

		r.Get("/users/{userID}/orders", h.Orders.ListByUser)

		r.Route("/returns/{id}", func(r chi.Router) {
			r.Get("/", h.Returns.GetByID)
			r.With(admin).Patch("/", h.Returns.Decide)
		})
	})

	return r
}
