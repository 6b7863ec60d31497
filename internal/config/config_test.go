package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joshuahuffman02/Camp-Everyday/internal/fees"
)

var allKeys = []string{
	"DATABASE_URL", "PORT", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "PAYMENT_PLATFORM_FEE_CENTS",
	"PLATFORM_FEE_PERCENT", "GATEWAY_FEE_PERCENT", "GATEWAY_FEE_CENTS", "PLATFORM_FEE_MODE", "GATEWAY_FEE_MODE",
	"PAYOUT_DRIFT_THRESHOLD_CENTS", "DRIFT_WARNING_CENTS", "DRIFT_CRITICAL_CENTS", "ALERT_WEBHOOK_URL",
	"JWT_SECRET", "OPERATOR_EMAIL", "OPERATOR_PASSWORD_HASH", "RECONCILE_WORKERS", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL",
	"RECONCILE_WINDOW",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseURL != defaultDatabaseURL {
		t.Errorf("port/db: %q %q", cfg.Port, cfg.DatabaseURL)
	}
	def := fees.DefaultConfig()
	if cfg.Fees.PlatformFeeCents != 300 || cfg.Fees.GatewayFeeCents != 30 || !cfg.Fees.GatewayFeePercent.Equal(def.GatewayFeePercent) {
		t.Errorf("fees: %+v", cfg.Fees)
	}
	if cfg.Fees.PlatformFeeMode != fees.ModeAbsorb || cfg.Fees.GatewayFeeMode != fees.ModeAbsorb {
		t.Errorf("modes: %q %q", cfg.Fees.PlatformFeeMode, cfg.Fees.GatewayFeeMode)
	}
	if cfg.Thresholds.DriftCents != 100 || cfg.Thresholds.WarningCents != 100 || cfg.Thresholds.CriticalCents != 1000 {
		t.Errorf("thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.Window != 7*24*time.Hour {
		t.Errorf("window: %v", cfg.Thresholds.Window)
	}
	if cfg.ReconcileWorkers != 10 || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("workers/log level: %d %v", cfg.ReconcileWorkers, cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYMENT_PLATFORM_FEE_CENTS", "250")
	t.Setenv("GATEWAY_FEE_PERCENT", "3.5")
	t.Setenv("PLATFORM_FEE_MODE", "passthrough")
	t.Setenv("DRIFT_CRITICAL_CENTS", "5000")
	t.Setenv("RECONCILE_WORKERS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RECONCILE_WINDOW", "72h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fees.PlatformFeeCents != 250 || !cfg.Fees.GatewayFeePercent.Equal(decimal.RequireFromString("3.5")) {
		t.Errorf("fees: %+v", cfg.Fees)
	}
	if cfg.Fees.PlatformFeeMode != fees.ModePassThrough {
		t.Errorf("platform mode: %q", cfg.Fees.PlatformFeeMode)
	}
	if cfg.Thresholds.CriticalCents != 5000 || cfg.ReconcileWorkers != 4 || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("cfg: %+v", cfg)
	}
	if cfg.Thresholds.Window != 72*time.Hour {
		t.Errorf("window: %v", cfg.Thresholds.Window)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"PAYMENT_PLATFORM_FEE_CENTS": "three dollars",
		"GATEWAY_FEE_PERCENT":        "150",
		"PLATFORM_FEE_MODE":          "sometimes",
		"DRIFT_CRITICAL_CENTS":       "50",
		"RECONCILE_WORKERS":          "0",
		"RECONCILE_WINDOW":           "a week",
		"LOG_LEVEL":                  "chatty",
		"PORT":                       "http",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q should be rejected", key, value)
			}
		})
	}
}

func TestRequireServerSecrets(t *testing.T) {
	err := Config{StripeSecretKey: "sk_test"}.RequireServerSecrets()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET, STRIPE_WEBHOOK_SECRET") {
		t.Fatalf("got %v", err)
	}
	if err := (Config{StripeSecretKey: "sk", StripeWebhookSecret: "whsec", JWTSecret: "j"}).RequireServerSecrets(); err != nil {
		t.Errorf("complete secrets rejected: %v", err)
	}
}
