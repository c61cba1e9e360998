package relay

import (
	"context"
	"crypto/subtle"

	"castrelay/internal/domain"
)

// KeyValidator checks connection-time credentials. The static implementation
// compares against the configured secret; an implementation backed by a key
// store would do I/O here, which is why the context is part of the contract.
type KeyValidator interface {
	Validate(ctx context.Context, apiKey string) error
}

type StaticKeyValidator struct {
	key []byte
}

func NewStaticKeyValidator(apiKey string) *StaticKeyValidator {
	return &StaticKeyValidator{key: []byte(apiKey)}
}

func (v *StaticKeyValidator) Validate(_ context.Context, apiKey string) error {
	if len(v.key) == 0 {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(v.key, []byte(apiKey)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}
