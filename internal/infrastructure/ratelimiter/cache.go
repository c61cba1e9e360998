package ratelimiter

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// StateCache stores per-source bucket state with expiry. The in-memory
// implementation is the default; a shared cache would slot in here if the
// limiter ever had to span processes.
type StateCache interface {
	Get(key string) (bucketState, error)
	Set(key string, state bucketState, ttl time.Duration) error
	Close() error
}
