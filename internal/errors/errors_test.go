package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"subscriber not found", ErrSubscriberNotFound, http.StatusNotFound},
		{"token not found", ErrTokenNotFound, http.StatusNotFound},
		{"user not found", ErrUserNotFound, http.StatusNotFound},
		{"issue not found", ErrIssueNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"conflict maps to 500 per spec", ErrConflict, http.StatusInternalServerError},
		{"email already registered maps to 500", ErrEmailAlreadyRegistered, http.StatusInternalServerError},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"invalid email", ErrInvalidEmail, http.StatusBadRequest},
		{"invalid username", ErrInvalidUserName, http.StatusBadRequest},
		{"bad idempotency key", ErrBadIdempotencyKey, http.StatusBadRequest},
		{"missing token", ErrMissingToken, http.StatusBadRequest},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"transient maps to 500", ErrTransient, http.StatusInternalServerError},
		{"internal maps to 500", ErrInternal, http.StatusInternalServerError},
		{"invalid credentials maps to 500", ErrInvalidCredentials, http.StatusInternalServerError},
		{"unexpected error maps to 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, ErrorToHTTPStatus(tt.err))
		})
	}
}

func TestWrapNotFound(t *testing.T) {
	err := WrapNotFound(errors.New("no rows"), "subscriber")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "subscriber")

	bare := WrapNotFound(nil, "subscriber")
	assert.True(t, IsNotFound(bare))
}

func TestWrapConflict(t *testing.T) {
	err := WrapConflict(errors.New("unique_violation"), "email")
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "email")

	bare := WrapConflict(nil, "email")
	assert.True(t, IsConflict(bare))
}

func TestWrapValidation(t *testing.T) {
	err := WrapValidation(errors.New("too long"), "username too long")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "username too long")

	bare := WrapValidation(nil, "username too long")
	assert.True(t, IsValidation(bare))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ErrSubscriberNotFound)))
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ErrInvalidUserName)))
	assert.True(t, IsConflict(fmt.Errorf("wrapped: %w", ErrEmailAlreadyRegistered)))
	assert.False(t, IsNotFound(ErrValidation))
	assert.False(t, IsConflict(ErrNotFound))
}

func TestDomainSentinelsWrapExpectedBase(t *testing.T) {
	assert.ErrorIs(t, ErrSubscriberNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrTokenNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrUserNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrIssueNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrInvalidEmail, ErrValidation)
	assert.ErrorIs(t, ErrInvalidUserName, ErrValidation)
	assert.ErrorIs(t, ErrBadIdempotencyKey, ErrValidation)
	assert.ErrorIs(t, ErrMissingToken, ErrValidation)
	assert.ErrorIs(t, ErrEmailAlreadyRegistered, ErrConflict)
}
