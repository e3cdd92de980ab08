package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesGatewaySharedSecretAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "GATEWAY_SHARED_SECRET")
	setEnvWithCleanup(t, "LEDGER_GATEWAY_SHARED_SECRET", "alias-only-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GatewaySharedSecret != "alias-only-secret" {
		t.Fatalf("expected GatewaySharedSecret from alias env var, got %q", cfg.GatewaySharedSecret)
	}
}

func TestLoadConfig_GatewaySharedSecretTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "GATEWAY_SHARED_SECRET", "primary-secret")
	setEnvWithCleanup(t, "LEDGER_GATEWAY_SHARED_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GatewaySharedSecret != "primary-secret" {
		t.Fatalf("expected GatewaySharedSecret to prioritize GATEWAY_SHARED_SECRET, got %q", cfg.GatewaySharedSecret)
	}
}

func TestLoadConfig_DefaultTokenTolerance(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "TOKEN_TOLERANCE_SECONDS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TokenToleranceSeconds != 60 {
		t.Fatalf("expected default TokenToleranceSeconds 60, got %d", cfg.TokenToleranceSeconds)
	}
}

func TestLoadConfig_InvalidToleranceFallsBackToDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "TOKEN_TOLERANCE_SECONDS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TokenToleranceSeconds != 60 {
		t.Fatalf("expected TokenToleranceSeconds to fall back to 60, got %d", cfg.TokenToleranceSeconds)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
