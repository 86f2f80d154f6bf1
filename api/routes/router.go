package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/greengate/api/controllers"
	"github.com/angelmondragon/greengate/api/middleware"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/internal/proxy"
	"github.com/angelmondragon/greengate/pkg/config"
	"github.com/angelmondragon/greengate/pkg/db"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/redis"
)

type proxyDispatcher interface {
	Dispatch(ctx context.Context, req proxy.Request) proxy.Result
}

type adminRoles interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// NewRouter mounts the proxy endpoint and its supporting routes. A nil redis
// client disables public rate limiting; a nil gatherer hides /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	dispatcher proxyDispatcher,
	notificationsService notifications.Service,
	ordersSvc orders.Service,
	roles adminRoles,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.Auth, logg))
			if redisClient != nil {
				policy := middleware.NewRateLimitPolicy("drgreen-proxy", cfg.RateLimit.PublicWindow, cfg.RateLimit.PublicIPLimit)
				r.Use(middleware.PublicRateLimit(policy, redisClient, logg))
			}
			r.Post("/drgreen-proxy", controllers.Proxy(dispatcher, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationsService, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(roles, logg))
				r.Get("/orders", controllers.AdminOrders(ordersSvc, logg))
			})
		})
	})

	return r
}
