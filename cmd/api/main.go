package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mintfield/coinledger-backend/api/routes"
	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/internal/orders"
	"github.com/mintfield/coinledger-backend/pkg/config"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/migrate"
	"github.com/mintfield/coinledger-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			Ledger:     ledgerService,
			Orders:     orderService,
			Membership: membershipService,
			AuditLog:   auditService,
			ReadyChecks: map[string]func(context.Context) error{
				"postgres": dbClient.Ping,
				"redis":    redisClient.Ping,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
