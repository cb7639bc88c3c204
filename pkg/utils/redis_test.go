package utils

import (
	"context"
	"testing"
	"time"
)

// Lock behavior against a live Redis is covered by integration tests; here we
// pin down argument validation so callers fail fast on wiring mistakes.

func TestAcquireLock_RejectsInvalidArgs(t *testing.T) {
	ctx := context.Background()

	if _, err := AcquireLock(ctx, nil, "k", "o", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestReleaseLock_RejectsNilClient(t *testing.T) {
	if err := ReleaseLock(context.Background(), nil, "k", "o"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if cfg.DialTimeout != 3*time.Second {
		t.Fatalf("dial timeout default = %v", cfg.DialTimeout)
	}
	if cfg.PoolSize != 20 {
		t.Fatalf("pool size default = %d", cfg.PoolSize)
	}
}
