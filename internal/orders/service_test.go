package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	"github.com/mintfield/coinledger-backend/pkg/paysign"
)

const testSignSecret = "test-sign-secret"

type orderFixture struct {
	conn *gorm.DB
	svc  Service
	repo Repository
}

func newOrderFixture(t *testing.T) *orderFixture {
	return newOrderFixtureWith(t, nil)
}

// newOrderFixtureWith wires the service over sqlite; decorate, when set,
// wraps the repository the service sees.
func newOrderFixtureWith(t *testing.T, decorate func(Repository) Repository) *orderFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	createOrderTestSchema(t, conn)

	client := db.NewFromConn(conn)

	auditSvc, err := auditlog.NewService(auditlog.NewRepository(conn))
	if err != nil {
		t.Fatalf("auditlog.NewService: %v", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		DB:    client,
		Repo:  ledger.NewRepository(conn),
		Audit: auditSvc,
	})
	if err != nil {
		t.Fatalf("ledger.NewService: %v", err)
	}

	repo := NewRepository(conn)
	wired := repo
	if decorate != nil {
		wired = decorate(repo)
	}
	svc, err := NewService(ServiceParams{
		DB:         client,
		Repo:       wired,
		Ledger:     ledgerSvc,
		Numbers:    NewNumberGenerator("CL", &stubSequencer{}, nil),
		SignSecret: testSignSecret,
		OrderTTL:   24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &orderFixture{conn: conn, svc: svc, repo: repo}
}

// createOrderTestSchema writes the tables by hand: the production DDL uses
// Postgres enums and server-side uuid defaults that sqlite cannot parse.
func createOrderTestSchema(t *testing.T, conn *gorm.DB) {
	t.Helper()
	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0,
  frozen_balance NUMERIC NOT NULL DEFAULT 0,
  partner_balance NUMERIC NOT NULL DEFAULT 0,
  level_code TEXT NOT NULL DEFAULT 'normal',
  vip_expire_date DATETIME,
  daily_quota INTEGER NOT NULL DEFAULT 0,
  advanced_agent INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	ledgerEntries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  before_balance NUMERIC NOT NULL,
  after_balance NUMERIC NOT NULL,
  remark TEXT,
  order_id TEXT,
  task_id TEXT,
  operator_id TEXT,
  created_at DATETIME
);`
	rechargeOrders := `
CREATE TABLE IF NOT EXISTS recharge_orders (
  id TEXT PRIMARY KEY,
  order_no TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  order_expire_at DATETIME,
  remark TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	adminOperationLogs := `
CREATE TABLE IF NOT EXISTS admin_operation_logs (
  id TEXT PRIMARY KEY,
  admin_user_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  operation_type TEXT NOT NULL,
  operation_detail TEXT,
  remark TEXT,
  created_at DATETIME
);`
	for _, stmt := range []string{users, ledgerEntries, rechargeOrders, adminOperationLogs} {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
	}
}

func (f *orderFixture) seedUser(t *testing.T, balance string) *models.User {
	t.Helper()
	user := &models.User{
		Email:   fmt.Sprintf("%s@example.com", uuid.NewString()),
		Balance: decimal.RequireFromString(balance),
	}
	if err := f.conn.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func (f *orderFixture) createOrder(t *testing.T, userID uuid.UUID, amount string) *models.RechargeOrder {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: userID,
		Amount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func signedCallback(orderNo, amount string) map[string]string {
	params := map[string]string{
		"order_no": orderNo,
		"amount":   amount,
	}
	params[paysign.SignField] = paysign.Sign(params, testSignSecret)
	return params
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")

	order := f.createOrder(t, user.ID, "50.00")
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("status = %s", order.PaymentStatus)
	}
	if !strings.HasPrefix(order.OrderNo, "CL") {
		t.Fatalf("order no = %s", order.OrderNo)
	}
	if order.OrderExpireAt == nil {
		t.Fatal("expire at must be set")
	}
	ttl := time.Until(*order.OrderExpireAt)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Fatalf("expire at not ~24h out: %s", order.OrderExpireAt)
	}

	if _, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: user.ID,
		Amount: decimal.RequireFromString("-5.00"),
	}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
}

func TestConfirmPaymentCreditsBalance(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "10.00")
	order := f.createOrder(t, user.ID, "50.00")

	settled, err := f.svc.ConfirmPayment(context.Background(), signedCallback(order.OrderNo, "50.00"))
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if settled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("status = %s", settled.PaymentStatus)
	}
	if settled.PaidAt == nil {
		t.Fatal("paid at must be set")
	}

	var stored models.User
	if err := f.conn.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !stored.Balance.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("balance = %s", stored.Balance)
	}

	var entry models.LedgerEntry
	if err := f.conn.First(&entry, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if entry.Type != enums.LedgerEntryTypeRecharge {
		t.Fatalf("entry type = %s", entry.Type)
	}
	if !entry.AfterBalance.Equal(entry.BeforeBalance.Add(entry.Amount)) {
		t.Fatal("entry does not balance")
	}
}

func TestConfirmPaymentReplayIsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")
	params := signedCallback(order.OrderNo, "50.00")

	if _, err := f.svc.ConfirmPayment(context.Background(), params); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	replayed, err := f.svc.ConfirmPayment(context.Background(), params)
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if replayed.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("status = %s", replayed.PaymentStatus)
	}

	var stored models.User
	if err := f.conn.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !stored.Balance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("replay must not credit twice, balance = %s", stored.Balance)
	}

	var count int64
	if err := f.conn.Model(&models.LedgerEntry{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one ledger entry, got %d", count)
	}
}

func TestConfirmPaymentRejectsBadSignature(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")

	params := signedCallback(order.OrderNo, "50.00")
	params[paysign.SignField] = "DEADBEEF"

	if _, err := f.svc.ConfirmPayment(context.Background(), params); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	reloaded, err := f.repo.FindByOrderNo(context.Background(), order.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("status = %s", reloaded.PaymentStatus)
	}
}

func TestConfirmPaymentRejectsAmountMismatch(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")

	if _, err := f.svc.ConfirmPayment(context.Background(), signedCallback(order.OrderNo, "49.00")); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	var stored models.User
	if err := f.conn.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !stored.Balance.IsZero() {
		t.Fatalf("balance changed on mismatch: %s", stored.Balance)
	}
}

func TestConfirmPaymentOnCancelledOrder(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")

	if _, err := f.svc.CancelOrder(context.Background(), order.OrderNo, "user backed out"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(context.Background(), signedCallback(order.OrderNo, "50.00")); !errors.Is(err, ErrOrderAlreadyTerminal) {
		t.Fatalf("expected terminal conflict, got %v", err)
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	if _, err := f.svc.ConfirmPayment(context.Background(), signedCallback("CL000", "50.00")); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")

	cancelled, err := f.svc.CancelOrder(context.Background(), order.OrderNo, "user backed out")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.PaymentStatus != enums.PaymentStatusCancelled {
		t.Fatalf("status = %s", cancelled.PaymentStatus)
	}
	if !strings.Contains(cancelled.Remark, "user backed out") {
		t.Fatalf("remark = %q", cancelled.Remark)
	}

	again, err := f.svc.CancelOrder(context.Background(), order.OrderNo, "duplicate click")
	if err != nil {
		t.Fatalf("duplicate cancel must be a no-op: %v", err)
	}
	if strings.Contains(again.Remark, "duplicate click") {
		t.Fatalf("duplicate cancel must not rewrite remark: %q", again.Remark)
	}
}

func TestCancelPaidOrderRefused(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")
	order := f.createOrder(t, user.ID, "50.00")

	if _, err := f.svc.ConfirmPayment(context.Background(), signedCallback(order.OrderNo, "50.00")); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if _, err := f.svc.CancelOrder(context.Background(), order.OrderNo, ""); !errors.Is(err, ErrOrderAlreadyTerminal) {
		t.Fatalf("expected terminal conflict, got %v", err)
	}
}

func TestExpireStaleOrders(t *testing.T) {
	f := newOrderFixture(t)
	user := f.seedUser(t, "0")

	past := time.Now().UTC().Add(-2 * time.Hour)
	future := time.Now().UTC().Add(2 * time.Hour)

	stale := f.createOrder(t, user.ID, "10.00")
	if err := f.conn.Model(stale).Update("order_expire_at", past).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}
	fresh := f.createOrder(t, user.ID, "20.00")
	if err := f.conn.Model(fresh).Update("order_expire_at", future).Error; err != nil {
		t.Fatalf("date order: %v", err)
	}
	paid := f.createOrder(t, user.ID, "30.00")
	if err := f.conn.Model(paid).Update("order_expire_at", past).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(context.Background(), signedCallback(paid.OrderNo, "30.00")); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	count, err := f.svc.ExpireStaleOrders(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpireStaleOrders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expired order, got %d", count)
	}

	reloaded, err := f.repo.FindByOrderNo(context.Background(), stale.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusCancelled {
		t.Fatalf("stale order status = %s", reloaded.PaymentStatus)
	}
	if !strings.Contains(reloaded.Remark, ExpiredRemark) {
		t.Fatalf("remark = %q", reloaded.Remark)
	}

	untouched, err := f.repo.FindByOrderNo(context.Background(), fresh.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if untouched.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("fresh order status = %s", untouched.PaymentStatus)
	}

	stillPaid, err := f.repo.FindByOrderNo(context.Background(), paid.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if stillPaid.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("paid order status = %s", stillPaid.PaymentStatus)
	}

	// A second sweep finds nothing pending and cancels nothing more.
	again, err := f.svc.ExpireStaleOrders(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("second ExpireStaleOrders: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep expired %d orders, want 0", again)
	}
	rerun, err := f.repo.FindByOrderNo(context.Background(), stale.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if rerun.Remark != reloaded.Remark {
		t.Fatalf("second sweep rewrote remark: %q -> %q", reloaded.Remark, rerun.Remark)
	}
}

// settleOnScanRepo marks every order returned by the expiry scan as paid
// before the sweep gets to cancel it, standing in for a payment callback
// committing between the sweep's read and its write.
type settleOnScanRepo struct {
	Repository
	db *gorm.DB
}

func (r *settleOnScanRepo) WithTx(tx *gorm.DB) Repository {
	return &settleOnScanRepo{Repository: r.Repository.WithTx(tx), db: tx}
}

func (r *settleOnScanRepo) FindPendingExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.RechargeOrder, error) {
	stale, err := r.Repository.FindPendingExpiredBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}
	paidAt := time.Now().UTC()
	for _, order := range stale {
		err := r.db.Model(&models.RechargeOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"payment_status": enums.PaymentStatusPaid,
				"paid_at":        paidAt,
			}).Error
		if err != nil {
			return nil, err
		}
	}
	return stale, nil
}

func TestExpireStaleOrdersSkipsConcurrentlySettled(t *testing.T) {
	f := newOrderFixtureWith(t, func(inner Repository) Repository {
		return &settleOnScanRepo{Repository: inner}
	})
	user := f.seedUser(t, "0")

	order := f.createOrder(t, user.ID, "40.00")
	past := time.Now().UTC().Add(-2 * time.Hour)
	if err := f.conn.Model(order).Update("order_expire_at", past).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}

	count, err := f.svc.ExpireStaleOrders(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpireStaleOrders: %v", err)
	}
	if count != 0 {
		t.Fatalf("sweep counted %d cancellations for a settled order, want 0", count)
	}

	reloaded, err := f.repo.FindByOrderNo(context.Background(), order.OrderNo)
	if err != nil {
		t.Fatalf("FindByOrderNo: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("settled order status = %s, want paid", reloaded.PaymentStatus)
	}
	if strings.Contains(reloaded.Remark, ExpiredRemark) {
		t.Fatalf("settled order remark = %q, expiry marker must not be appended", reloaded.Remark)
	}
}
