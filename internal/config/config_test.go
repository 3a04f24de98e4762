package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("COMMISSION_ASYNC", "not-a-bool")
	t.Setenv("ADMIN_ATTEMPT_WINDOW", "15m")

	cfg := Load()
	if cfg.LedgerDriver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.LedgerDriver)
	}
	if !cfg.CommissionAsync {
		t.Fatal("unparseable bool must fall back to the default")
	}
	if cfg.AdminAttemptWindow != 15*time.Minute {
		t.Fatalf("unexpected window %s", cfg.AdminAttemptWindow)
	}
	if cfg.CommissionMaxDepth != 10 || cfg.ContestCron != "5 0 * * 1" {
		t.Fatalf("unexpected defaults: depth=%d cron=%q", cfg.CommissionMaxDepth, cfg.ContestCron)
	}
}

func TestPaymentsConfigured(t *testing.T) {
	cfg := &Config{RazorpayKeyID: "rzp_test"}
	if cfg.PaymentsConfigured() {
		t.Fatal("expected payments disabled without a secret")
	}
	cfg.RazorpayKeySecret = "secret"
	if !cfg.PaymentsConfigured() {
		t.Fatal("expected payments enabled")
	}
}

func TestParseStringSlice(t *testing.T) {
	got := parseStringSlice(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}
