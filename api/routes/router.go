package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/inventory-service/api/controllers"
	"github.com/angelmondragon/inventory-service/api/middleware"
	"github.com/angelmondragon/inventory-service/internal/inventory"
	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer relies on.
type redisStore interface {
	redis.IdempotencyStore
	redis.Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	inventoryService inventory.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]controllers.Pinger{"database": dbP}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg.App.Env))
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, deps, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	policy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.Limit)

	r.Route("/api/inventory", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.RateLimit(policy, redisClient, logg))
		}

		r.Post("/", controllers.CreateInventoryItem(inventoryService, logg))
		r.Get("/low-stock", controllers.GetLowStockItems(inventoryService, logg))
		r.Get("/statistics", controllers.GetInventoryStatistics(inventoryService, logg))
		r.Get("/sku/{sku}", controllers.GetInventoryBySKU(inventoryService, logg))
		r.Get("/check/{productId}", controllers.CheckAvailability(inventoryService, logg))
		r.Post("/expire-reservations", controllers.ExpireReservations(inventoryService, logg))

		r.Route("/product/{productId}", func(r chi.Router) {
			r.Get("/", controllers.GetInventoryByProduct(inventoryService, logg))
			r.Patch("/", controllers.UpdateInventorySettings(inventoryService, logg))
			r.Patch("/stock", controllers.UpdateStock(inventoryService, logg))
			r.Get("/history", controllers.GetInventoryHistory(inventoryService, logg))
		})

		reserve := controllers.ReserveStock(inventoryService, logg)
		if redisClient != nil {
			r.With(middleware.Idempotency(redisClient, middleware.DefaultIdempotencyTTL, logg)).Post("/reserve", reserve)
		} else {
			r.Post("/reserve", reserve)
		}
		r.Patch("/reservations/{reservationId}", controllers.ReleaseReservation(inventoryService, logg))
	})

	return r
}
