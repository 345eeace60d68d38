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

const phoneNotFoundMsg = "phone number not found"

// PhoneNumber is the local record of a tri-system phone entity: the row id
// here, the provisioning provider's SID, and the voice platform's phone
// resource id. The row is the source of truth for ownership and the fallback
// number; everything else is display data fetched live.
type PhoneNumber struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	VapiPhoneID    string    `db:"vapi_phone_id"`
	TwilioSID      *string   `db:"twilio_sid"`
	Number         string    `db:"number"`
	FallbackNumber *string   `db:"fallback_number"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Orphan records a provisioning-provider resource left behind when a later
// reconciliation step failed. Kept durable so cleanup survives a restart.
type Orphan struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	ProviderSID string     `db:"provider_sid"`
	Number      string     `db:"number"`
	Reason      string     `db:"reason"`
	Released    bool       `db:"released"`
	CreatedAt   time.Time  `db:"created_at"`
	ReleasedAt  *time.Time `db:"released_at"`
}

// Repository provides database operations for phone numbers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new phones repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new phone number row.
func (r *Repository) Insert(ctx context.Context, phone *PhoneNumber) error {
	query := `
		INSERT INTO phone_numbers (
			id, user_id, vapi_phone_id, twilio_sid, number, fallback_number, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.pool.Exec(ctx, query,
		phone.ID, phone.UserID, phone.VapiPhoneID, phone.TwilioSID,
		phone.Number, phone.FallbackNumber, phone.CreatedAt, phone.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert phone number: %w", err)
	}

	return nil
}

// GetByVapiID retrieves a phone row by voice-platform id scoped to its owner.
func (r *Repository) GetByVapiID(ctx context.Context, userID uuid.UUID, vapiPhoneID string) (*PhoneNumber, error) {
	var phone PhoneNumber
	query := `SELECT id, user_id, vapi_phone_id, twilio_sid, number, fallback_number, created_at, updated_at
		FROM phone_numbers WHERE user_id = $1 AND vapi_phone_id = $2`

	err := r.pool.QueryRow(ctx, query, userID, vapiPhoneID).Scan(
		&phone.ID, &phone.UserID, &phone.VapiPhoneID, &phone.TwilioSID,
		&phone.Number, &phone.FallbackNumber, &phone.CreatedAt, &phone.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(phoneNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get phone number: %w", err)
	}

	return &phone, nil
}

// List retrieves all phone rows owned by the given user.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]PhoneNumber, error) {
	query := `SELECT id, user_id, vapi_phone_id, twilio_sid, number, fallback_number, created_at, updated_at
		FROM phone_numbers WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phone numbers: %w", err)
	}
	defer rows.Close()

	var items []PhoneNumber
	for rows.Next() {
		var phone PhoneNumber
		if err := rows.Scan(
			&phone.ID, &phone.UserID, &phone.VapiPhoneID, &phone.TwilioSID,
			&phone.Number, &phone.FallbackNumber, &phone.CreatedAt, &phone.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan phone number: %w", err)
		}
		items = append(items, phone)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate phone numbers: %w", err)
	}

	return items, nil
}

// UpsertFallbackNumber sets the locally stored fallback number. Idempotent:
// re-applying the same value is a no-op update.
func (r *Repository) UpsertFallbackNumber(ctx context.Context, userID uuid.UUID, vapiPhoneID, fallbackNumber string) error {
	query := `UPDATE phone_numbers SET fallback_number = $3, updated_at = $4
		WHERE user_id = $1 AND vapi_phone_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, vapiPhoneID, fallbackNumber, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update fallback number: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(phoneNotFoundMsg)
	}

	return nil
}

// Delete removes a phone row. Returns whether a row was actually removed so
// the caller can distinguish "deleted" from "was never there".
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID, vapiPhoneID string) (bool, error) {
	query := `DELETE FROM phone_numbers WHERE user_id = $1 AND vapi_phone_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, vapiPhoneID)
	if err != nil {
		return false, fmt.Errorf("failed to delete phone number: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// InsertOrphan records a provisioned number whose import never completed.
func (r *Repository) InsertOrphan(ctx context.Context, orphan *Orphan) error {
	query := `
		INSERT INTO phone_orphans (
			id, user_id, provider_sid, number, reason, released, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err := r.pool.Exec(ctx, query,
		orphan.ID, orphan.UserID, orphan.ProviderSID, orphan.Number,
		orphan.Reason, orphan.Released, orphan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert phone orphan: %w", err)
	}

	return nil
}

// GetOrphan retrieves an orphan record by id.
func (r *Repository) GetOrphan(ctx context.Context, id uuid.UUID) (*Orphan, error) {
	var orphan Orphan
	query := `SELECT id, user_id, provider_sid, number, reason, released, created_at, released_at
		FROM phone_orphans WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&orphan.ID, &orphan.UserID, &orphan.ProviderSID, &orphan.Number,
		&orphan.Reason, &orphan.Released, &orphan.CreatedAt, &orphan.ReleasedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("orphan record not found")
		}
		return nil, fmt.Errorf("failed to get phone orphan: %w", err)
	}

	return &orphan, nil
}

// MarkOrphanReleased records that the provider resource was cleaned up.
func (r *Repository) MarkOrphanReleased(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE phone_orphans SET released = TRUE, released_at = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to mark orphan released: %w", err)
	}

	return nil
}
