package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"telegram_tapper/internal/economy"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TAP_RATE_LIMIT", "7")
	t.Setenv("STORE_TIMEOUT_MS", "not-a-number")

	cfg := Load()

	if cfg.AppPort != "8080" || cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("got port=%s driver=%s", cfg.AppPort, cfg.StoreDriver)
	}
	if cfg.TapRateLimit != 7 {
		t.Fatalf("TapRateLimit = %d; want 7", cfg.TapRateLimit)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Fatalf("bad STORE_TIMEOUT_MS should fall back to default, got %v", cfg.StoreTimeout)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("JWTTTL = %v", cfg.JWTTTL)
	}
	if cfg.Seed != economy.DefaultSeed() {
		t.Fatalf("seed = %+v", cfg.Seed)
	}
}

func TestLoadSeedOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economy.toml")
	body := "[seed]\nmax_energy = 1500\nmultitap_price = 200\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	seed, err := LoadSeed(path, economy.DefaultSeed())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seed.MaxEnergy != 1500 || seed.MultitapPrice != 200 {
		t.Fatalf("overrides not applied: %+v", seed)
	}
	if seed.EnergyLimitPrice != economy.DefaultSeed().EnergyLimitPrice {
		t.Fatalf("untouched key changed: %+v", seed)
	}
}

func TestLoadSeedRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.toml":  "[seed]\nmax_enrgy = 10\n",
		"negative.toml": "[seed]\nmax_energy = -1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		_ = os.WriteFile(path, []byte(body), 0o600)
		if _, err := LoadSeed(path, economy.DefaultSeed()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadSeed(filepath.Join(dir, "missing.toml"), economy.DefaultSeed()); err == nil {
		t.Fatalf("missing file: expected error")
	}
}

func TestAdminIDs(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("ADMIN_IDS", "12, 34,bad,,56")

	cfg := Load()
	want := []int64{12, 34, 56}
	if len(cfg.AdminIDs) != len(want) {
		t.Fatalf("AdminIDs = %v; want %v", cfg.AdminIDs, want)
	}
	for i := range want {
		if cfg.AdminIDs[i] != want[i] {
			t.Fatalf("AdminIDs = %v; want %v", cfg.AdminIDs, want)
		}
	}
}
