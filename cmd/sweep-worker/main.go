package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/internal/orders"
	"github.com/mintfield/coinledger-backend/internal/sweep"
	"github.com/mintfield/coinledger-backend/pkg/config"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/metrics"
	"github.com/mintfield/coinledger-backend/pkg/migrate"
	"github.com/mintfield/coinledger-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	auditService, err := auditlog.NewService(auditlog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit log service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:    dbClient,
		Repo:  ledger.NewRepository(dbClient.DB()),
		Audit: auditService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		DB:         dbClient,
		Repo:       orders.NewRepository(dbClient.DB()),
		Ledger:     ledgerService,
		Numbers:    orders.NewNumberGenerator(cfg.Orders.NumberPrefix, redisClient, logg),
		SignSecret: cfg.Payment.SignSecret,
		OrderTTL:   cfg.Orders.TTL,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	membershipService, err := membership.NewService(membership.ServiceParams{
		DB:    dbClient,
		Repo:  membership.NewRepository(dbClient.DB()),
		Audit: auditService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create membership service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)

	orderLock, err := sweep.NewRedisLock(redisClient, redisClient.LockKey("sweep:order_expiry"), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry lock", err)
		os.Exit(1)
	}
	intervalRunner, err := sweep.NewIntervalRunner(sweep.IntervalRunnerParams{
		Logger:   logg,
		Registry: sweep.NewRegistry(sweep.NewOrderExpiryJob(orderService)),
		Lock:     orderLock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweep.OrderExpiryInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry runner", err)
		os.Exit(1)
	}

	vipLock, err := sweep.NewRedisLock(redisClient, redisClient.LockKey("sweep:vip_expiry"), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create vip expiry lock", err)
		os.Exit(1)
	}
	anchoredRunner, err := sweep.NewAnchoredRunner(sweep.AnchoredRunnerParams{
		Logger:   logg,
		Job:      sweep.NewVIPExpiryJob(membershipService, logg),
		Lock:     vipLock,
		Metrics:  jobMetrics,
		Cooldown: cfg.Sweep.VIPExpiryCooldown,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vip expiry runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting sweep worker")

	var mu sync.Mutex
	var runErr error
	var wg sync.WaitGroup
	for _, run := range []func(context.Context) error{intervalRunner.Run, anchoredRunner.Run} {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				runErr = multierr.Append(runErr, err)
				mu.Unlock()
				stop()
			}
		}(run)
	}
	wg.Wait()

	if runErr != nil {
		logg.Error(ctx, "sweep worker stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "sweep worker shutting down gracefully")
}
