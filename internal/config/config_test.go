package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HTTP.Port != defaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want %d", cfg.HTTP.Port, defaultHTTPPort)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("Idempotency.TTL = %s, want %s", cfg.Idempotency.TTL, defaultIdempotencyTTL)
	}
	if cfg.Idempotency.StaleAfter != defaultIdempotencyStale {
		t.Errorf("Idempotency.StaleAfter = %s, want %s", cfg.Idempotency.StaleAfter, defaultIdempotencyStale)
	}
	if cfg.Database.URL == "" {
		t.Error("Database.URL should fall back to a built URL")
	}
}

func TestLoadIdempotencyConfig(t *testing.T) {
	t.Run("parses durations from environment", func(t *testing.T) {
		t.Setenv("IDEMPOTENCY_TTL", "30m")
		t.Setenv("IDEMPOTENCY_STALE_AFTER", "90s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if cfg.Idempotency.TTL != 30*time.Minute {
			t.Errorf("Idempotency.TTL = %s, want 30m", cfg.Idempotency.TTL)
		}
		if cfg.Idempotency.StaleAfter != 90*time.Second {
			t.Errorf("Idempotency.StaleAfter = %s, want 90s", cfg.Idempotency.StaleAfter)
		}
	})

	t.Run("rejects malformed TTL", func(t *testing.T) {
		t.Setenv("IDEMPOTENCY_TTL", "soon")

		if _, err := Load(); err == nil {
			t.Error("Load() should fail for malformed IDEMPOTENCY_TTL")
		}
	})

	t.Run("rejects non-positive TTL", func(t *testing.T) {
		t.Setenv("IDEMPOTENCY_TTL", "0s")

		if _, err := Load(); err == nil {
			t.Error("Load() should fail for zero IDEMPOTENCY_TTL")
		}
	})
}

func TestLoadRedisConfig(t *testing.T) {
	t.Run("redis disabled by default", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Redis.Addr != "" {
			t.Errorf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
		}
	})

	t.Run("reads address and db index", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("REDIS_DB", "3")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Redis.Addr != "localhost:6379" {
			t.Errorf("Redis.Addr = %q, want localhost:6379", cfg.Redis.Addr)
		}
		if cfg.Redis.DB != 3 {
			t.Errorf("Redis.DB = %d, want 3", cfg.Redis.DB)
		}
	})

	t.Run("rejects malformed db index", func(t *testing.T) {
		t.Setenv("REDIS_DB", "three")

		if _, err := Load(); err == nil {
			t.Error("Load() should fail for malformed REDIS_DB")
		}
	})
}
