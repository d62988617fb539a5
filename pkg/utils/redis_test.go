package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestClaimOnce_ValidatesArgs(t *testing.T) {
	ctx := context.Background()

	if _, err := ClaimOnce(ctx, nil, "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	defer rdb.Close()

	if _, err := ClaimOnce(ctx, rdb, "", time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := ClaimOnce(ctx, rdb, "k", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
