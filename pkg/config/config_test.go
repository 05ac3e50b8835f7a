package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COINLEDGER_APP_ENV", "dev")
	t.Setenv("COINLEDGER_JWT_SECRET", "shh")
	t.Setenv("COINLEDGER_JWT_ISSUER", "coinledger")
	t.Setenv("COINLEDGER_PAYMENT_SIGN_SECRET", "gateway-secret")
}

func TestLoadComposesDSNFromParts(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("COINLEDGER_DB_HOST", "localhost")
	t.Setenv("COINLEDGER_DB_USER", "ledger")
	t.Setenv("COINLEDGER_DB_PASSWORD", "pw")
	t.Setenv("COINLEDGER_DB_NAME", "coinledger")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasPrefix(cfg.DB.DSN, "postgres://ledger:pw@localhost:5432/coinledger") {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
	if !strings.Contains(cfg.DB.DSN, "sslmode=disable") {
		t.Fatalf("expected sslmode in dsn, got %q", cfg.DB.DSN)
	}
}

func TestLoadPrefersExplicitDSN(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("COINLEDGER_DB_DSN", "postgres://already/there")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.DSN != "postgres://already/there" {
		t.Fatalf("explicit dsn overwritten: %q", cfg.DB.DSN)
	}
}

func TestLoadFailsWithoutDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("COINLEDGER_DB_DSN", "")
	t.Setenv("COINLEDGER_DB_HOST", "")
	t.Setenv("COINLEDGER_DB_USER", "")
	t.Setenv("COINLEDGER_DB_NAME", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no database settings provided")
	}
}

func TestSweepDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("COINLEDGER_DB_DSN", "postgres://x")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sweep.OrderExpiryInterval.Hours() != 1 {
		t.Fatalf("unexpected order expiry interval %v", cfg.Sweep.OrderExpiryInterval)
	}
	if cfg.Sweep.VIPExpiryCooldown.Minutes() != 5 {
		t.Fatalf("unexpected vip cooldown %v", cfg.Sweep.VIPExpiryCooldown)
	}
	if cfg.Orders.NumberPrefix != "CL" {
		t.Fatalf("unexpected order prefix %q", cfg.Orders.NumberPrefix)
	}
}

func TestAppEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() || app.IsProd() {
		t.Fatal("env helpers should match case-insensitively")
	}
}
