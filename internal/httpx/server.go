package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Log            *zap.Logger
	AllowedOrigins []string
	GeneralLimiter Limiter
	PaymentLimiter Limiter
}

func NewRouter(cfg RouterConfig, catalogH *CatalogHandler, ordersH *OrdersHandler, paymentH *PaymentHandler) *chi.Mux {
	log := cfg.Log
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), metricsMiddleware, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "Endpoint not found", apperr.KindNotFound, nil)
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		paymentH.RegisterWebhook(r)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.GeneralLimiter, "Too many requests from this IP, please try again later.", log))
			catalogH.Register(r)
			ordersH.Register(r)
			paymentH.Register(r, rateLimit(cfg.PaymentLimiter, "Too many payment requests, please try again later.", log))
		})
	})
	return r
}
