package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "2fa:session-1", 3, time.Minute, now)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i+1)
		}
	}

	result, err := limiter.Allow(ctx, "2fa:session-1", 3, time.Minute, now)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected fourth request blocked")
	}

	// A different key is unaffected.
	result, err = limiter.Allow(ctx, "2fa:session-2", 3, time.Minute, now)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected other key allowed")
	}

	// The next window resets the count.
	result, err = limiter.Allow(ctx, "2fa:session-1", 3, time.Minute, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected new window allowed")
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	manager := NewManager(func(context.Context) SettingsConfig {
		return SettingsConfig{}
	}, func() time.Time { return now }, nil)

	for i := 0; i < 2; i++ {
		result, err := manager.Allow(ctx, KeyForLogin("10.0.0.1"), 2, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i+1)
		}
	}
	result, err := manager.Allow(ctx, KeyForLogin("10.0.0.1"), 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected third request blocked")
	}
}

func TestManagerZeroLimitAllows(t *testing.T) {
	manager := NewManager(nil, nil, nil)
	result, err := manager.Allow(context.Background(), "key", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected zero limit to disable limiting")
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := KeyForTwoFactor("abc"); got != "2fa:abc" {
		t.Fatalf("expected 2fa key, got %q", got)
	}
	if got := KeyForLogin("10.0.0.1"); got != "login:10.0.0.1" {
		t.Fatalf("expected login key, got %q", got)
	}
}
