/*
app.go - Dependency wiring shared by the server and the CLI

PURPOSE:
  Turns a config.Config into a ready engine: store, planner, billing service
  and late-fee accruer. cmd/server puts HTTP and the scheduler on top;
  cmd/freightctl calls the same pieces directly.

WIRING:
  store     sqlstore.Open(DB_DRIVER, DB_DSN)
  rates     RATE_TABLE_FILE or factory.DefaultRateTableJSON
  routes    ROUTES_FILE or factory.DefaultRoutesJSON
  planner   booking.NewPlanner(routes, rates, Calculator{HorizonDays})
  accruer   billing.NewAccruer(store, store); lock.Chain{Local, Redis}
            when REDIS_ADDR is set
  rate seed LATE_FEE_DAILY_RATE is written when the store has no rate

SEE ALSO:
  - cmd/server/main.go
  - cmd/freightctl
*/

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/warp/freight-engine/api"
	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/config"
	"github.com/warp/freight-engine/factory"
	"github.com/warp/freight-engine/lock"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/quote"
	"github.com/warp/freight-engine/recurrence"
	"github.com/warp/freight-engine/store/sqlstore"
)

// App holds the wired engine.
type App struct {
	Config  *config.Config
	Store   *sqlstore.Store
	Planner *booking.Planner
	Billing *billing.Service
	Accruer *billing.Accruer
	Logger  zerolog.Logger

	redis *redis.Client
}

// New opens the store and wires every component. Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.WithComponent("app")

	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(dialect, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{Config: cfg, Store: store, Logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	table, err := loadRateTable(cfg.RateTableFile)
	if err != nil {
		return err
	}
	routes, err := loadRoutes(cfg.RoutesFile)
	if err != nil {
		return err
	}

	a.Planner = booking.NewPlanner(routes, table, &recurrence.Calculator{HorizonDays: cfg.RecurrenceHorizonDays})
	a.Billing = billing.NewService(a.Store)
	a.Accruer = billing.NewAccruer(a.Store, a.Store)

	if cfg.RedisAddr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		a.redis = client
		a.Accruer.Lock = lock.Chain{lock.NewLocal(), lock.NewRedis(client, cfg.RedisLockKey, cfg.RedisLockTTL)}
		a.Logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis sweep lock")
	}

	return a.seedRate(ctx)
}

// seedRate writes LATE_FEE_DAILY_RATE when the store has no rate yet. A rate
// set through the API is never overwritten by a restart.
func (a *App) seedRate(ctx context.Context) error {
	rate, ok, err := a.Config.DailyRate()
	if err != nil || !ok {
		return err
	}
	_, found, err := a.Store.DailyRate(ctx, billing.CategoryInvoices)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	if err := a.Store.SetRate(ctx, billing.CategoryInvoices, rate); err != nil {
		return fmt.Errorf("seed late fee rate: %w", err)
	}
	a.Logger.Info().Str("daily_rate", rate.String()).Msg("seeded late fee rate")
	return nil
}

// Handler builds the HTTP handler over the wired components.
func (a *App) Handler() *api.Handler {
	return api.NewHandler(a.Planner, a.Billing, a.Accruer, a.Store, a.Store)
}

// RouterOptions maps config onto the API middleware options.
func (a *App) RouterOptions() api.RouterOptions {
	opts := api.DefaultRouterOptions()
	if len(a.Config.CORSOrigins) > 0 {
		opts.AllowedOrigins = a.Config.CORSOrigins
	}
	opts.RequestsPerMinute = a.Config.RateLimitPerMinute
	return opts
}

// Scheduler builds the late-fee scheduler from config.
func (a *App) Scheduler() *api.LateFeeScheduler {
	s := api.NewLateFeeScheduler(a.Accruer)
	s.Schedule = a.Config.SweepSchedule
	s.Enabled = a.Config.SweepEnabled
	return s
}

func (a *App) Close() error {
	if a.redis != nil {
		a.redis.Close()
	}
	return a.Store.Close()
}

func loadRateTable(path string) (*quote.Table, error) {
	data := factory.DefaultRateTableJSON()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rate table: %w", err)
		}
		data = b
	}
	return factory.ParseRateTable(data)
}

func loadRoutes(path string) (quote.FixedRoutes, error) {
	data := factory.DefaultRoutesJSON()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read routes: %w", err)
		}
		data = b
	}
	return factory.ParseRoutes(data)
}
