package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("SCHEDULED_CUSTOMERS", "")
	t.Setenv("LEDGER_SOURCE", "")
	t.Setenv("STATE_STORE", "")
	t.Setenv("JWT_SECRET", "")

	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %v", cfg.CacheTTL)
	}
	if len(cfg.ScheduledCustomers) != 0 {
		t.Errorf("expected no scheduled customers, got %v", cfg.ScheduledCustomers)
	}
	if cfg.LedgerSource != "supabase" || cfg.StateStore != "sqlite" {
		t.Errorf("expected supabase ledger with sqlite state, got %s/%s", cfg.LedgerSource, cfg.StateStore)
	}
	if cfg.JWTSecret != "" {
		t.Errorf("expected auth disabled by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("SCHEDULED_CUSTOMERS", "cust-1, ,cust-2")

	cfg := config.Load()
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.CacheTTL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback of 3 retries, got %d", cfg.MaxRetries)
	}
	if len(cfg.ScheduledCustomers) != 2 || cfg.ScheduledCustomers[1] != "cust-2" {
		t.Errorf("expected [cust-1 cust-2], got %v", cfg.ScheduledCustomers)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nLEDGER_SOURCE=file\nexport SNAPSHOT_DIR=\"/tmp/snaps\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEDGER_SOURCE", "http")
	t.Setenv("SNAPSHOT_DIR", "")
	os.Unsetenv("SNAPSHOT_DIR")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("LEDGER_SOURCE"); got != "http" {
		t.Errorf("expected env to win, got %q", got)
	}
	if got := os.Getenv("SNAPSHOT_DIR"); got != "/tmp/snaps" {
		t.Errorf("expected /tmp/snaps, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadThresholds(t *testing.T) {
	def, err := config.LoadThresholds("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.ModeCooldownDays != analysis.DefaultThresholds().ModeCooldownDays {
		t.Errorf("expected defaults for empty path")
	}

	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("mode_cooldown_days: 3\nlarge_purchase_multiplier: 4.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	th, err := config.LoadThresholds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.ModeCooldownDays != 3 || th.LargePurchaseMultiplier != 4.5 {
		t.Errorf("expected overrides, got cooldown=%d multiplier=%v", th.ModeCooldownDays, th.LargePurchaseMultiplier)
	}
	if th.IskraHorizonDays != def.IskraHorizonDays {
		t.Errorf("expected untouched fields to keep defaults, got %d", th.IskraHorizonDays)
	}
}

func TestLoadThresholds_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "mode_cooldown_days: [\n"},
		{"inverted horizons", "iskra_horizon_days: 2\nmochila_horizon_days: 5\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := config.LoadThresholds(path); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := config.LoadThresholds(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
