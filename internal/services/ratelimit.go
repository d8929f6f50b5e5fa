package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// rateWindowLua atomically increments the counter and sets the TTL only on
// the first hit in the window, so later requests never extend the window.
// Returns {count, ttl_seconds}.
var rateWindowLua = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('TTL', KEYS[1])
	return {count, ttl}
`)

// RateLimitStatus reports one gate decision for response headers.
type RateLimitStatus struct {
	Allowed       bool
	UserRemaining int
	IPRemaining   int
	ResetSeconds  int
}

// Remaining is the effective budget: the tighter of the two gates.
func (s *RateLimitStatus) Remaining() int {
	if s.UserRemaining < s.IPRemaining {
		return s.UserRemaining
	}
	return s.IPRemaining
}

type localWindow struct {
	count       int
	windowStart time.Time
}

// RateLimiterService enforces a fixed 60-second window per authenticated
// user and per client IP. Counters live in redis when available; on any
// redis failure it falls back transparently to an in-process map, which
// under-enforces in multi-instance deployments — an accepted, observable
// degradation (warn-logged), not a request failure.
type RateLimiterService struct {
	client    *redis.Client // nil = always use local counters
	window    time.Duration
	userLimit int
	ipLimit   int

	mu        sync.Mutex
	local     map[string]*localWindow
	lastSweep time.Time
}

func NewRateLimiterService(client *redis.Client, userLimit, ipLimit int) *RateLimiterService {
	if userLimit <= 0 {
		userLimit = 5
	}
	if ipLimit <= 0 {
		ipLimit = 20
	}
	return &RateLimiterService{
		client:    client,
		window:    60 * time.Second,
		userLimit: userLimit,
		ipLimit:   ipLimit,
		local:     make(map[string]*localWindow),
		lastSweep: time.Now(),
	}
}

// Check runs both gates for one request. The request is denied when either
// key has exhausted its window budget; ResetSeconds is the Retry-After hint.
func (s *RateLimiterService) Check(ctx context.Context, userID uint, ip string) *RateLimitStatus {
	userCount, userReset := s.incr(ctx, fmt.Sprintf("user:%d", userID))
	ipCount, ipReset := s.incr(ctx, fmt.Sprintf("ip:%s", ip))

	status := &RateLimitStatus{
		Allowed:       userCount <= s.userLimit && ipCount <= s.ipLimit,
		UserRemaining: remaining(s.userLimit, userCount),
		IPRemaining:   remaining(s.ipLimit, ipCount),
		ResetSeconds:  maxInt(userReset, ipReset),
	}
	return status
}

func remaining(limit, count int) int {
	r := limit - count
	if r < 0 {
		return 0
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// incr bumps one counter and returns (count, secondsUntilReset).
func (s *RateLimiterService) incr(ctx context.Context, key string) (int, int) {
	windowSecs := int(s.window / time.Second)

	if s.client != nil {
		res, err := rateWindowLua.Run(ctx, s.client, []string{"ratelimit:" + key}, windowSecs).Int64Slice()
		if err == nil && len(res) == 2 {
			ttl := int(res[1])
			if ttl < 0 {
				ttl = windowSecs
			}
			return int(res[0]), ttl
		}
		logger.Warnf("[RateLimit] shared store unavailable, enforcing per-instance only: %v", err)
	}

	return s.incrLocal(key)
}

func (s *RateLimiterService) incrLocal(key string) (int, int) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic sweep of expired windows.
	if now.Sub(s.lastSweep) > 5*time.Minute {
		for k, w := range s.local {
			if now.Sub(w.windowStart) >= s.window {
				delete(s.local, k)
			}
		}
		s.lastSweep = now
	}

	w, ok := s.local[key]
	if !ok || now.Sub(w.windowStart) >= s.window {
		w = &localWindow{windowStart: now}
		s.local[key] = w
	}
	w.count++

	reset := int((s.window - now.Sub(w.windowStart)) / time.Second)
	if reset < 1 {
		reset = 1
	}
	return w.count, reset
}
