package ratelimiter

import (
	"math"
	"net/http"
	"sync"
	"time"
)

const defaultSourceKey = "X-RateLimit-Key"

type Limiter interface {
	Allow(sourceKey string) bool
	Remaining(sourceKey string) int
	GetSourceKey(r *http.Request) string
	GetMaxBurst() int
}

type bucketState struct {
	tokens   float64
	lastFill int64 // Unix milliseconds
}

// RateLimiter is a token-bucket limiter keyed by request source.
type RateLimiter struct {
	ratePerMilli    float64
	maxBurst        int
	cache           StateCache
	cacheTTL        time.Duration
	sourceHeaderKey string

	// Per-key locks so refill+take is atomic per source.
	locks sync.Map // map[string]*sync.Mutex
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	Cache            StateCache
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

func New(options Options) Limiter {
	if options.Cache == nil {
		options.Cache = NewInMemory()
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = 10 * time.Second
	}
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	return &RateLimiter{
		ratePerMilli:    float64(options.MaxRatePerSecond) / 1000.0,
		maxBurst:        options.MaxBurst,
		cache:           options.Cache,
		cacheTTL:        options.CacheTTL,
		sourceHeaderKey: options.SourceHeaderKey,
	}
}

func (rl *RateLimiter) getLock(sourceKey string) *sync.Mutex {
	lock, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (rl *RateLimiter) getState(sourceKey string, now int64) bucketState {
	state, err := rl.cache.Get(sourceKey)
	if err != nil {
		// Miss or cache failure: fail open with a full bucket.
		return bucketState{tokens: float64(rl.maxBurst), lastFill: now}
	}
	return state
}

func (rl *RateLimiter) refill(state bucketState, now int64) bucketState {
	elapsed := now - state.lastFill
	if elapsed <= 0 {
		return state
	}

	tokens := state.tokens + float64(elapsed)*rl.ratePerMilli
	return bucketState{
		tokens:   math.Min(tokens, float64(rl.maxBurst)),
		lastFill: now,
	}
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	state := rl.refill(rl.getState(sourceKey, now), now)

	if state.tokens < 1 {
		_ = rl.cache.Set(sourceKey, state, rl.cacheTTL)
		return false
	}

	state.tokens--
	_ = rl.cache.Set(sourceKey, state, rl.cacheTTL)
	return true
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	lock := rl.getLock(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UnixMilli()
	state := rl.refill(rl.getState(sourceKey, now), now)
	_ = rl.cache.Set(sourceKey, state, rl.cacheTTL)

	return int(state.tokens)
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}

	// Fall back to IP address
	return r.RemoteAddr
}
