// Package app assembles the services shared by the API and the sync worker.
package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/greengate/internal/authz"
	"github.com/angelmondragon/greengate/internal/cart"
	"github.com/angelmondragon/greengate/internal/clients"
	"github.com/angelmondragon/greengate/internal/cron"
	"github.com/angelmondragon/greengate/internal/journey"
	"github.com/angelmondragon/greengate/internal/notifications"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/internal/proxy"
	"github.com/angelmondragon/greengate/internal/reconcile"
	"github.com/angelmondragon/greengate/internal/strains"
	"github.com/angelmondragon/greengate/internal/users"
	"github.com/angelmondragon/greengate/internal/wallets"
	"github.com/angelmondragon/greengate/pkg/config"
	"github.com/angelmondragon/greengate/pkg/drgreen"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/metrics"
)

const notificationCleanupInterval = 24 * time.Hour

// Services is the wired domain layer.
type Services struct {
	Users             *users.Repository
	Clients           clients.Service
	Orders            orders.Service
	Cart              cart.Service
	Strains           strains.Service
	Wallets           wallets.Service
	Journey           journey.Service
	Notifications     notifications.Service
	NotificationsRepo notifications.Repository
	Gate              *authz.Gate
	Reconciler        *reconcile.Reconciler
	Poller            *reconcile.Poller
	Syncer            *strains.Syncer
	Dispatcher        *proxy.Dispatcher
}

// Build wires repositories, services and the proxy dispatcher over conn.
func Build(conn *gorm.DB, cfg *config.Config, upstream drgreen.Doer, m *metrics.UpstreamMetrics, logg *logger.Logger) (*Services, error) {
	s := &Services{Users: users.NewRepository(conn)}
	var err error

	if s.Clients, err = clients.NewService(clients.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Orders, err = orders.NewService(orders.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Cart, err = cart.NewService(cart.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Strains, err = strains.NewService(strains.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Wallets, err = wallets.NewService(wallets.NewRepository(conn)); err != nil {
		return nil, err
	}
	if s.Journey, err = journey.NewService(journey.NewRepository(conn)); err != nil {
		return nil, err
	}
	s.NotificationsRepo = notifications.NewRepository(conn)
	if s.Notifications, err = notifications.NewService(s.NotificationsRepo); err != nil {
		return nil, err
	}

	s.Gate, err = authz.NewGate(cfg.Catalog, s.Users, authz.Owners{Clients: s.Clients, Orders: s.Orders}, m)
	if err != nil {
		return nil, err
	}
	s.Reconciler, err = reconcile.NewReconciler(reconcile.Params{
		Upstream: upstream,
		Clients:  s.Clients,
		Orders:   s.Orders,
		Notifier: s.Notifications,
		Journal:  s.Journey,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	if s.Poller, err = reconcile.NewPoller(s.Reconciler, s.Clients, cfg.Sync.BatchLimit, logg); err != nil {
		return nil, err
	}
	if s.Syncer, err = strains.NewSyncer(upstream, s.Strains, cfg.Catalog.SyncCountries, cfg.Catalog.PageSize, logg); err != nil {
		return nil, err
	}

	s.Dispatcher, err = proxy.NewDispatcher(proxy.Deps{
		Upstream:      upstream,
		Gate:          s.Gate,
		Clients:       s.Clients,
		Orders:        s.Orders,
		Cart:          s.Cart,
		Strains:       s.Strains,
		StrainSync:    s.Syncer,
		Wallets:       s.Wallets,
		Journey:       s.Journey,
		Notifications: s.Notifications,
		Reconciler:    s.Reconciler,
		Metrics:       m,
		Logger:        logg,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ScheduleParams configure the background schedules.
type ScheduleParams struct {
	Config   *config.Config
	Upstream drgreen.Doer
	DB       cron.TxRunner
	Metrics  *metrics.CronJobMetrics
	Logger   *logger.Logger
	// LockFor returns the lock guarding one schedule.
	LockFor func(name string) (cron.Lock, error)
}

// Schedules builds one cron service per cadence: order reconcile, client
// status poll, strain catalog sync and notification cleanup.
func (s *Services) Schedules(p ScheduleParams) ([]*cron.Service, error) {
	orderJob, err := cron.NewOrderReconcileJob(p.Logger, s.Poller)
	if err != nil {
		return nil, err
	}
	statusJob, err := cron.NewClientStatusJob(cron.ClientStatusJobParams{
		Logger:     p.Logger,
		Upstream:   p.Upstream,
		Clients:    s.Clients,
		Notifier:   s.Notifications,
		Journal:    s.Journey,
		BatchLimit: p.Config.Sync.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	strainJob, err := cron.NewStrainSyncJob(p.Logger, s.Syncer)
	if err != nil {
		return nil, err
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     p.Logger,
		DB:         p.DB,
		Repository: s.NotificationsRepo,
	})
	if err != nil {
		return nil, err
	}

	plan := []struct {
		job      cron.Job
		interval time.Duration
	}{
		{orderJob, p.Config.Sync.OrderPollInterval},
		{statusJob, p.Config.Sync.ClientPollInterval},
		{strainJob, p.Config.Sync.StrainSyncInterval},
		{cleanupJob, notificationCleanupInterval},
	}

	services := make([]*cron.Service, 0, len(plan))
	for _, entry := range plan {
		name := entry.job.Name()
		lock, err := p.LockFor(name)
		if err != nil {
			return nil, err
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Name:     name,
			Logger:   p.Logger,
			Registry: cron.NewRegistry(entry.job),
			Lock:     lock,
			Metrics:  p.Metrics,
			Interval: entry.interval,
		})
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}
