package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mintfield/coinledger-backend/api/controllers"
	"github.com/mintfield/coinledger-backend/api/middleware"
	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/internal/orders"
	"github.com/mintfield/coinledger-backend/pkg/config"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	"github.com/mintfield/coinledger-backend/pkg/logger"
)

// Params hold everything the router wires together.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Ledger     ledger.Service
	Orders     orders.Service
	Membership membership.Service
	AuditLog   auditlog.Service

	// ReadyChecks probe downstream dependencies for /health/ready.
	ReadyChecks map[string]func(context.Context) error
}

// NewRouter assembles the HTTP surface.
func NewRouter(params Params) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.ReadyChecks))
	})

	// The gateway calls back unauthenticated; the MD5 signature is the
	// authentication.
	r.Post("/api/v1/payments/callback", controllers.PaymentCallback(params.Orders, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.Wallet(params.Ledger, logg))
			r.Get("/entries", controllers.WalletEntries(params.Ledger, logg))
			r.Post("/consume", controllers.WalletSpend(params.Ledger, enums.LedgerEntryTypeConsume, logg))
			r.Post("/freeze", controllers.WalletSpend(params.Ledger, enums.LedgerEntryTypeFreeze, logg))
			r.Post("/unfreeze", controllers.WalletSpend(params.Ledger, enums.LedgerEntryTypeUnfreeze, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(params.Orders, logg))
			r.Get("/", controllers.ListOrders(params.Orders, logg))
			r.Get("/{orderNo}", controllers.GetOrder(params.Orders, logg))
			r.Post("/{orderNo}/cancel", controllers.CancelOrder(params.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/adjust", controllers.AdminAdjustBalance(params.Ledger, logg))
			r.Put("/level", controllers.AdminChangeLevel(params.Membership, logg))
			r.Get("/logs", controllers.AdminListOperationLogs(params.AuditLog, logg))
			r.Get("/entries", controllers.AdminListEntries(params.Ledger, logg))
		})
	})

	return r
}
