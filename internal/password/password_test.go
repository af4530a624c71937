package password

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	phc, err := Hash("correct horse battery staple", salt)
	require.NoError(t, err)
	assert.Contains(t, phc, "$argon2id$v=19$m=15000,t=2,p=1$")

	ok, err := Verify(phc, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(phc, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedPHC(t *testing.T) {
	_, err := Verify("not-a-phc-string", "whatever")
	assert.Error(t, err)
}

func TestValidateCredentialsKnownUser(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	phc, err := Hash("s3cret", salt)
	require.NoError(t, err)

	lookup := func(ctx context.Context, username string) (string, string, error) {
		if username == "admin" {
			return "user-1", phc, nil
		}
		return "", "", apperrors.ErrUserNotFound
	}

	userID, err := ValidateCredentials(context.Background(), "admin", "s3cret", lookup)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = ValidateCredentials(context.Background(), "admin", "wrong", lookup)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestValidateCredentialsUnknownUserStillRunsVerify(t *testing.T) {
	lookup := func(ctx context.Context, username string) (string, string, error) {
		return "", "", apperrors.ErrUserNotFound
	}

	start := time.Now()
	_, err := ValidateCredentials(context.Background(), "ghost", "whatever", lookup)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	// A real Argon2id verify takes on the order of tens of milliseconds;
	// a timing-safe implementation must not short-circuit before that.
	assert.Greater(t, elapsed.Milliseconds(), int64(0))
}
