package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
	if cfg.MaxMagnitude != 10 {
		t.Fatalf("max magnitude = %d, want 10", cfg.MaxMagnitude)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TICKARENA_TICK_RATE", "30")
	t.Setenv("TICKARENA_SPAWN_X", "12.5")
	t.Setenv("TICKARENA_AUDIT_DB", "audit.db")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TickRate != 30 || cfg.SpawnX != 12.5 || cfg.AuditDB != "audit.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TICKARENA_KEYFRAME_INTERVAL=7\nTICKARENA_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	// godotenv 直接写进程环境，测试结束后清理
	t.Cleanup(func() {
		_ = os.Unsetenv("TICKARENA_KEYFRAME_INTERVAL")
		_ = os.Unsetenv("TICKARENA_LOG_LEVEL")
	})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.KeyframeInterval != 7 || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "not a number", key: "TICKARENA_TICK_RATE", value: "fast"},
		{name: "zero tick rate", key: "TICKARENA_TICK_RATE", value: "0"},
		{name: "magnitude too big", key: "TICKARENA_MAX_MAGNITUDE", value: "300"},
		{name: "magnitude above cap", key: "TICKARENA_MAX_MAGNITUDE", value: "11"},
		{name: "spawn outside", key: "TICKARENA_SPAWN_Y", value: "500"},
		{name: "bad float", key: "TICKARENA_WORLD_WIDTH", value: "wide"},
		{name: "negative keyframe", key: "TICKARENA_KEYFRAME_INTERVAL", value: "-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestValidateMagnitudeCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMagnitude = MaxMagnitude
	if err := cfg.Validate(); err != nil {
		t.Fatalf("cap itself rejected: %v", err)
	}
	cfg.MaxMagnitude = 200
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
