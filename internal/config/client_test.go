package config

import (
	"testing"
	"time"
)

func TestLoadClientDefaults(t *testing.T) {
	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.SessionWSURL != "ws://localhost:8080/ws" {
		t.Fatalf("SessionWSURL = %q", cfg.SessionWSURL)
	}
	if cfg.BalanceDriftThreshold != 100 {
		t.Fatalf("BalanceDriftThreshold = %d, want 100", cfg.BalanceDriftThreshold)
	}
	if cfg.PositionNoiseRadius != 16 || cfg.PositionTeleportRadius != 64 {
		t.Fatalf("position radii = %v/%v, want 16/64", cfg.PositionNoiseRadius, cfg.PositionTeleportRadius)
	}
	if cfg.SlotsRevealDelay != 1800*time.Millisecond {
		t.Fatalf("SlotsRevealDelay = %v, want 1.8s", cfg.SlotsRevealDelay)
	}
	if cfg.LootboxWriteTries != 3 {
		t.Fatalf("LootboxWriteTries = %d, want 3", cfg.LootboxWriteTries)
	}
}

func TestLoadClientParseTypes(t *testing.T) {
	t.Setenv("BALANCE_DRIFT_THRESHOLD", "250")
	t.Setenv("POSITION_NOISE_RADIUS", "8.5")
	t.Setenv("RECONNECT_MAX_INTERVAL", "10s")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.BalanceDriftThreshold != 250 {
		t.Fatalf("BalanceDriftThreshold = %d, want 250", cfg.BalanceDriftThreshold)
	}
	if cfg.PositionNoiseRadius != 8.5 {
		t.Fatalf("PositionNoiseRadius = %v, want 8.5", cfg.PositionNoiseRadius)
	}
	if cfg.ReconnectMaxInterval != 10*time.Second {
		t.Fatalf("ReconnectMaxInterval = %v, want 10s", cfg.ReconnectMaxInterval)
	}
}

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.MaxMB != 10 {
		t.Fatalf("MaxMB = %d, want 10", cfg.MaxMB)
	}
}
