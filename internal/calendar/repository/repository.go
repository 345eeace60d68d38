package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is a stored calendar credential, unique per (email, provider).
type Account struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	Provider    string    `db:"provider"`
	AccessToken string    `db:"access_token"`
	TokenType   string    `db:"token_type"`
	Expiry      time.Time `db:"expiry"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Repository provides database operations for calendar accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new calendar repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores a credential, replacing any previous one for the same
// (email, provider) pair.
func (r *Repository) Upsert(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO calendar_accounts (
			id, email, provider, access_token, token_type, expiry, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (email, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		account.ID, account.Email, account.Provider, account.AccessToken,
		account.TokenType, account.Expiry, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar account: %w", err)
	}

	return nil
}

// GetByEmail retrieves the stored credential for an email and provider.
func (r *Repository) GetByEmail(ctx context.Context, email, provider string) (*Account, error) {
	var account Account
	query := `SELECT id, email, provider, access_token, token_type, expiry, created_at, updated_at
		FROM calendar_accounts WHERE email = $1 AND provider = $2`

	err := r.pool.QueryRow(ctx, query, email, provider).Scan(
		&account.ID, &account.Email, &account.Provider, &account.AccessToken,
		&account.TokenType, &account.Expiry, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no connected calendar for this email")
		}
		return nil, fmt.Errorf("failed to get calendar account: %w", err)
	}

	return &account, nil
}
