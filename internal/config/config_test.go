package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://example/test")
	defer os.Unsetenv("DATABASE_URL")
	for _, key := range []string{
		"RESOLVER_CACHE_TTL_MS", "RESOLVER_MAX_RETRIES", "RESOLVER_INITIAL_BACKOFF_MS",
		"BROKER_ALLOW_HANDLER_OVERRIDE", "ANGLE_WRAP_MODE", "PORT",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Resolver.CacheTTL != 30*time.Second {
		t.Fatalf("expected default cache TTL 30s, got %v", cfg.Resolver.CacheTTL)
	}
	if cfg.Resolver.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.Resolver.MaxRetries)
	}
	if cfg.AllowHandlerOverride {
		t.Fatalf("expected AllowHandlerOverride to default false")
	}
	if cfg.AngleWrapMode != ModeMod360 {
		t.Fatalf("expected default angle wrap mode mod360, got %q", cfg.AngleWrapMode)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://example/test")
	os.Setenv("RESOLVER_CACHE_TTL_MS", "5000")
	os.Setenv("RESOLVER_MAX_RETRIES", "7")
	os.Setenv("BROKER_ALLOW_HANDLER_OVERRIDE", "true")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("RESOLVER_CACHE_TTL_MS")
		os.Unsetenv("RESOLVER_MAX_RETRIES")
		os.Unsetenv("BROKER_ALLOW_HANDLER_OVERRIDE")
	}()

	cfg := Load()

	if cfg.Resolver.CacheTTL != 5*time.Second {
		t.Fatalf("expected overridden cache TTL 5s, got %v", cfg.Resolver.CacheTTL)
	}
	if cfg.Resolver.MaxRetries != 7 {
		t.Fatalf("expected overridden max retries 7, got %d", cfg.Resolver.MaxRetries)
	}
	if !cfg.AllowHandlerOverride {
		t.Fatalf("expected AllowHandlerOverride true")
	}
}
