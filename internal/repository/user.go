package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
	"github.com/strv-go/newsletter-publisher/internal/models"
)

//go:embed queries/user/get_user_by_username.sql
var getUserByUsernameQuery string

//go:embed queries/user/get_user_by_id.sql
var getUserByIDQuery string

//go:embed queries/user/update_password.sql
var updatePasswordQuery string

//go:embed queries/user/insert_user.sql
var insertUserQuery string

// UserStore provides the administrator-credential lookups needed by C5.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore builds a UserStore.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetByUsername returns the stored credential record for username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, getUserByUsernameQuery, username).Scan(&u.ID, &u.Username, &u.PasswordHashed, &u.Salt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user store: GetByUsername: %w", apperrors.ErrUserNotFound)
		}
		return nil, fmt.Errorf("user store: GetByUsername: %w", err)
	}
	return &u, nil
}

// GetByID returns the stored credential record for userID.
func (s *UserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, getUserByIDQuery, userID).Scan(&u.ID, &u.Username, &u.PasswordHashed, &u.Salt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user store: GetByID: %w", apperrors.ErrUserNotFound)
		}
		return nil, fmt.Errorf("user store: GetByID: %w", err)
	}
	return &u, nil
}

// UpdatePassword overwrites the stored PHC and salt for userID.
func (s *UserStore) UpdatePassword(ctx context.Context, userID, passwordHashed, salt string) error {
	cmdTag, err := s.pool.Exec(ctx, updatePasswordQuery, passwordHashed, salt, userID)
	if err != nil {
		return fmt.Errorf("user store: UpdatePassword: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user store: UpdatePassword: %w", apperrors.ErrUserNotFound)
	}
	return nil
}

// EnsureSeeded inserts the bootstrap administrator if it does not already
// exist. Out of scope per spec §9's design notes (the core treats admin
// provisioning as external bootstrap); kept minimal so a fresh database is
// usable without a separate provisioning step.
func (s *UserStore) EnsureSeeded(ctx context.Context, userID, username, passwordHashed, salt string) error {
	if _, err := s.pool.Exec(ctx, insertUserQuery, userID, username, passwordHashed, salt); err != nil {
		return fmt.Errorf("user store: EnsureSeeded: %w", err)
	}
	return nil
}
