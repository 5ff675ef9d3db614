package cache

import (
	"errors"
	"testing"
	"time"
)

func TestDisabledCacheIsNoOp(t *testing.T) {
	c, err := NewCache("", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Enabled() {
		t.Fatalf("expected cache to be disabled")
	}
	if err := c.CacheLeaderboard(10, []int{1, 2}); err != nil {
		t.Fatalf("expected disabled set to succeed, got %v", err)
	}

	var dest []int
	if err := c.GetCachedLeaderboard(10, &dest); !errors.Is(err, ErrCacheDisabled) {
		t.Fatalf("expected ErrCacheDisabled, got %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("expected flush to succeed, got %v", err)
	}

	first, err := c.MarkUserSynced(3)
	if err != nil || !first {
		t.Fatalf("expected disabled cache to always request a sync, got %v (%v)", first, err)
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	if c.Enabled() {
		t.Fatalf("expected nil cache to be disabled")
	}
	if err := c.InvalidateLeaderboard(); err != nil {
		t.Fatalf("expected nil cache invalidate to succeed, got %v", err)
	}
}

func TestSetTTLsKeepsDefaultsForNonPositive(t *testing.T) {
	c, _ := NewCache("", "", false)
	c.SetTTLs(0, 2*time.Minute)

	if c.leaderboardTTL != defaultLeaderboardTTL {
		t.Fatalf("expected default leaderboard ttl, got %s", c.leaderboardTTL)
	}
	if c.catalogTTL != 2*time.Minute {
		t.Fatalf("expected catalog ttl of 2m, got %s", c.catalogTTL)
	}
}

func TestLeaderboardKey(t *testing.T) {
	if got := LeaderboardKey(25); got != "leaderboard:25" {
		t.Fatalf("expected leaderboard:25, got %q", got)
	}
}
