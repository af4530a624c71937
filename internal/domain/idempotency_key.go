package domain

import (
	"fmt"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

const maxIdempotencyKeyLength = 50

// IdempotencyKey is a client-chosen key scoping a "do this at most once"
// claim for a single admin user.
type IdempotencyKey struct {
	value string
}

// ParseIdempotencyKey requires a non-empty key of at most 50 characters.
func ParseIdempotencyKey(s string) (IdempotencyKey, error) {
	if s == "" {
		return IdempotencyKey{}, fmt.Errorf("%w: must not be empty", apperrors.ErrBadIdempotencyKey)
	}
	if len(s) > maxIdempotencyKeyLength {
		return IdempotencyKey{}, fmt.Errorf("%w: must be at most %d characters", apperrors.ErrBadIdempotencyKey, maxIdempotencyKeyLength)
	}
	return IdempotencyKey{value: s}, nil
}

func (k IdempotencyKey) String() string { return k.value }
