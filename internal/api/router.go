package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comigor/msghook/internal/api/middleware"
	"github.com/comigor/msghook/internal/inbox"
	"github.com/comigor/msghook/internal/signature"
)

// Options tunes the router.
type Options struct {
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *inbox.Service, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", signature.Header},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	h := NewHandler(svc, opts.MaxBodyBytes)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Post("/webhook", h.Webhook)
	r.Get("/messages", h.ListMessages)

	return r
}
