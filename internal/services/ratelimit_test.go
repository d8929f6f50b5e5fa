package services

import (
	"context"
	"testing"
	"time"
)

// All tests run against the in-process fallback (nil redis client); the
// lua path executes the same fixed-window semantics server-side.

func TestRateLimiter_AllowsWithinLimits(t *testing.T) {
	rl := NewRateLimiterService(nil, 3, 10)

	for i := 0; i < 3; i++ {
		status := rl.Check(context.Background(), 1, "10.0.0.1")
		if !status.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_UserLimitBreach(t *testing.T) {
	rl := NewRateLimiterService(nil, 2, 100)

	rl.Check(context.Background(), 1, "10.0.0.1")
	rl.Check(context.Background(), 1, "10.0.0.1")
	status := rl.Check(context.Background(), 1, "10.0.0.1")

	if status.Allowed {
		t.Error("third request should breach the user limit of 2")
	}
	if status.UserRemaining != 0 {
		t.Errorf("user remaining = %d, expected 0", status.UserRemaining)
	}
	if status.ResetSeconds < 1 || status.ResetSeconds > 60 {
		t.Errorf("reset seconds = %d, expected within the 60s window", status.ResetSeconds)
	}
}

func TestRateLimiter_IPLimitBreachAcrossUsers(t *testing.T) {
	rl := NewRateLimiterService(nil, 100, 2)

	rl.Check(context.Background(), 1, "10.0.0.9")
	rl.Check(context.Background(), 2, "10.0.0.9")
	status := rl.Check(context.Background(), 3, "10.0.0.9")

	if status.Allowed {
		t.Error("shared IP should breach the IP limit of 2 across users")
	}
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	rl := NewRateLimiterService(nil, 1, 100)

	first := rl.Check(context.Background(), 1, "10.0.0.1")
	if !first.Allowed {
		t.Fatal("first request for user 1 should pass")
	}
	blocked := rl.Check(context.Background(), 1, "10.0.0.1")
	if blocked.Allowed {
		t.Error("second request for user 1 should be blocked")
	}

	other := rl.Check(context.Background(), 2, "10.0.0.2")
	if !other.Allowed {
		t.Error("a different user on a different IP must not be affected")
	}
}

func TestRateLimiter_WindowExpiryResetsCounter(t *testing.T) {
	rl := NewRateLimiterService(nil, 2, 100)

	rl.Check(context.Background(), 1, "10.0.0.1")
	rl.Check(context.Background(), 1, "10.0.0.1")
	if status := rl.Check(context.Background(), 1, "10.0.0.1"); status.Allowed {
		t.Fatal("third request inside the window should be blocked")
	}

	// Age every counter past the window boundary.
	rl.mu.Lock()
	for _, w := range rl.local {
		w.windowStart = time.Now().Add(-61 * time.Second)
	}
	rl.mu.Unlock()

	status := rl.Check(context.Background(), 1, "10.0.0.1")
	if !status.Allowed {
		t.Error("a request after the window elapsed should be allowed again")
	}
	if status.UserRemaining != 1 {
		t.Errorf("user remaining = %d, expected a reset counter leaving 1", status.UserRemaining)
	}
}

func TestRateLimitStatus_RemainingIsTighterGate(t *testing.T) {
	status := &RateLimitStatus{UserRemaining: 4, IPRemaining: 17}
	if got := status.Remaining(); got != 4 {
		t.Errorf("remaining = %d, expected the tighter user budget 4", got)
	}

	status = &RateLimitStatus{UserRemaining: 9, IPRemaining: 3}
	if got := status.Remaining(); got != 3 {
		t.Errorf("remaining = %d, expected the tighter ip budget 3", got)
	}
}

func TestRateLimiter_DefaultLimits(t *testing.T) {
	rl := NewRateLimiterService(nil, 0, 0)
	if rl.userLimit != 5 || rl.ipLimit != 20 {
		t.Errorf("defaults = %d/%d, expected 5/20", rl.userLimit, rl.ipLimit)
	}
}
