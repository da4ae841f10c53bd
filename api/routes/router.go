package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tapline/tapline-backend/api/controllers"
	ordercontrollers "github.com/tapline/tapline-backend/api/controllers/orders"
	"github.com/tapline/tapline-backend/api/middleware"
	"github.com/tapline/tapline-backend/internal/orders"
	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/db"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/metrics"
	"github.com/tapline/tapline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	orderMetrics *metrics.OrderMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, orderMetrics, logg))
			r.Get("/", ordercontrollers.ListActive(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Get(ordersSvc, logg))
			r.Post("/{orderId}/items", ordercontrollers.AddItems(ordersSvc, orderMetrics, logg))
			r.Post("/{orderId}/items/{itemId}/void", ordercontrollers.VoidItem(ordersSvc, orderMetrics, logg))
			r.Post("/{orderId}/send", ordercontrollers.Send(ordersSvc, orderMetrics, logg))
			r.Post("/{orderId}/pay", ordercontrollers.Pay(ordersSvc, orderMetrics, logg))
			r.Post("/{orderId}/void", ordercontrollers.VoidOrder(ordersSvc, orderMetrics, logg))
			r.Post("/{orderId}/reopen", ordercontrollers.Reopen(ordersSvc, orderMetrics, logg))
		})
	})

	return r
}
