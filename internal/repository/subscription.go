package repository

import (
	"context"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

//go:embed queries/subscription/insert_subscriber.sql
var insertSubscriberQuery string

//go:embed queries/subscription/insert_token.sql
var insertTokenQuery string

//go:embed queries/subscription/get_subscriber_by_token.sql
var getSubscriberByTokenQuery string

//go:embed queries/subscription/confirm_subscriber.sql
var confirmSubscriberQuery string

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const tokenLength = 25

// ConfirmationSender submits the confirmation email inside the subscribe
// transaction; a failure rolls the whole subscription back.
type ConfirmationSender func(ctx context.Context, toEmail, toName, confirmationLink string) error

// SubscriptionStore implements C4: atomic subscriber+token creation paired
// with a best-effort confirmation email, and token-based confirmation.
type SubscriptionStore struct {
	pool    *pgxpool.Pool
	baseURL string
	send    ConfirmationSender
}

// NewSubscriptionStore builds a SubscriptionStore. baseURL is used to build
// the confirmation link embedded in the outbound email.
func NewSubscriptionStore(pool *pgxpool.Pool, baseURL string, send ConfirmationSender) *SubscriptionStore {
	return &SubscriptionStore{pool: pool, baseURL: baseURL, send: send}
}

// Subscribe inserts the subscriber and its token and sends the confirmation
// email, all inside one transaction. If the email send fails the whole
// transaction is rolled back and the subscriber will not exist.
func (s *SubscriptionStore) Subscribe(ctx context.Context, name, email string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("subscription store: Subscribe: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	subscriberID := uuid.NewString()
	if _, err := tx.Exec(ctx, insertSubscriberQuery, subscriberID, email, name, "pending_confirmed"); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("subscription store: Subscribe: %w", apperrors.ErrEmailAlreadyRegistered)
		}
		return "", fmt.Errorf("subscription store: Subscribe: insert subscriber: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("subscription store: Subscribe: generate token: %w", err)
	}
	if _, err := tx.Exec(ctx, insertTokenQuery, subscriberID, token); err != nil {
		return "", fmt.Errorf("subscription store: Subscribe: insert token: %w", err)
	}

	confirmationLink := fmt.Sprintf("%s/subscriptions/confirm?token=%s", s.baseURL, token)
	if err := s.send(ctx, email, name, confirmationLink); err != nil {
		return "", fmt.Errorf("subscription store: Subscribe: send confirmation email: %w: %w", apperrors.ErrTransient, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("subscription store: Subscribe: commit: %w", err)
	}
	return subscriberID, nil
}

// Confirm marks the subscriber owning token as confirmed. Idempotent:
// confirming an already-confirmed subscriber is a no-op.
func (s *SubscriptionStore) Confirm(ctx context.Context, token string) error {
	var subscriberID, status string
	err := s.pool.QueryRow(ctx, getSubscriberByTokenQuery, token).Scan(&subscriberID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("subscription store: Confirm: %w", apperrors.ErrTokenNotFound)
		}
		return fmt.Errorf("subscription store: Confirm: lookup: %w", err)
	}

	if status == "confirmed" {
		return nil
	}

	if _, err := s.pool.Exec(ctx, confirmSubscriberQuery, subscriberID); err != nil {
		return fmt.Errorf("subscription store: Confirm: update: %w", err)
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, tokenLength)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}
