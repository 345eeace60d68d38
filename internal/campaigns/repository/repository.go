package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callops_backend/internal/campaigns/transport"
	"callops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const campaignNotFoundMsg = "campaign not found"

// Call represents one persisted call record.
type Call struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	AssistantID *string    `db:"assistant_id"`
	CallID      string     `db:"call_id"`
	CampaignID  *uuid.UUID `db:"campaign_id"`
	Name        *string    `db:"name"`
	Phone       *string    `db:"phone"`
	Email       *string    `db:"email"`
	Status      string     `db:"status"`
	Cost        float64    `db:"cost"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Campaign represents one persisted campaign record. Status is derived from
// per-call outcomes and provider refreshes, never set directly by the caller.
type Campaign struct {
	ID             uuid.UUID  `db:"id"`
	UserID         uuid.UUID  `db:"user_id"`
	VapiCampaignID string     `db:"vapi_campaign_id"`
	Name           string     `db:"name"`
	PhoneNumberID  string     `db:"phone_number_id"`
	AssistantID    *string    `db:"assistant_id"`
	WorkflowID     *string    `db:"workflow_id"`
	Status         string     `db:"status"`
	TotalLeads     int        `db:"total_leads"`
	EarliestAt     *time.Time `db:"earliest_at"`
	LatestAt       *time.Time `db:"latest_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Repository provides database operations for campaigns and calls.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new campaigns repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertCall persists one call record. Each insert is an independent write so
// a crash mid-campaign keeps every call dispatched up to that point.
func (r *Repository) InsertCall(ctx context.Context, call *Call) error {
	query := `
		INSERT INTO calls (
			id, user_id, assistant_id, call_id, campaign_id, name, phone, email, status, cost, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := r.pool.Exec(ctx, query,
		call.ID, call.UserID, call.AssistantID, call.CallID, call.CampaignID,
		call.Name, call.Phone, call.Email, call.Status, call.Cost, call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call: %w", err)
	}

	return nil
}

// ListCalls retrieves a user's call records, optionally filtered by assistant.
func (r *Repository) ListCalls(ctx context.Context, userID uuid.UUID, assistantID string) ([]Call, error) {
	query := `SELECT id, user_id, assistant_id, call_id, campaign_id, name, phone, email, status, cost, created_at
		FROM calls WHERE user_id = $1`
	args := []interface{}{userID}
	if assistantID != "" {
		query += " AND assistant_id = $2"
		args = append(args, assistantID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var items []Call
	for rows.Next() {
		var call Call
		if err := rows.Scan(
			&call.ID, &call.UserID, &call.AssistantID, &call.CallID, &call.CampaignID,
			&call.Name, &call.Phone, &call.Email, &call.Status, &call.Cost, &call.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		items = append(items, call)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calls: %w", err)
	}

	return items, nil
}

// UpdateCallStatus updates the status of a call by its provider call id.
func (r *Repository) UpdateCallStatus(ctx context.Context, providerCallID, status string) error {
	query := `UPDATE calls SET status = $2 WHERE call_id = $1`

	if _, err := r.pool.Exec(ctx, query, providerCallID, status); err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}

	return nil
}

// InsertCampaign persists a campaign record created from the provider response.
func (r *Repository) InsertCampaign(ctx context.Context, campaign *Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, user_id, vapi_campaign_id, name, phone_number_id, assistant_id, workflow_id,
			status, total_leads, earliest_at, latest_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := r.pool.Exec(ctx, query,
		campaign.ID, campaign.UserID, campaign.VapiCampaignID, campaign.Name, campaign.PhoneNumberID,
		campaign.AssistantID, campaign.WorkflowID, campaign.Status, campaign.TotalLeads,
		campaign.EarliestAt, campaign.LatestAt, campaign.CreatedAt, campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	return nil
}

// GetCampaign retrieves a campaign owned by the given user.
func (r *Repository) GetCampaign(ctx context.Context, id, userID uuid.UUID) (*Campaign, error) {
	var campaign Campaign
	query := `SELECT id, user_id, vapi_campaign_id, name, phone_number_id, assistant_id, workflow_id,
		status, total_leads, earliest_at, latest_at, created_at, updated_at
		FROM campaigns WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&campaign.ID, &campaign.UserID, &campaign.VapiCampaignID, &campaign.Name, &campaign.PhoneNumberID,
		&campaign.AssistantID, &campaign.WorkflowID, &campaign.Status, &campaign.TotalLeads,
		&campaign.EarliestAt, &campaign.LatestAt, &campaign.CreatedAt, &campaign.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(campaignNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// GetCampaignByID retrieves a campaign without an ownership filter. Used by
// the background refresh worker, which acts on behalf of the system.
func (r *Repository) GetCampaignByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	var campaign Campaign
	query := `SELECT id, user_id, vapi_campaign_id, name, phone_number_id, assistant_id, workflow_id,
		status, total_leads, earliest_at, latest_at, created_at, updated_at
		FROM campaigns WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&campaign.ID, &campaign.UserID, &campaign.VapiCampaignID, &campaign.Name, &campaign.PhoneNumberID,
		&campaign.AssistantID, &campaign.WorkflowID, &campaign.Status, &campaign.TotalLeads,
		&campaign.EarliestAt, &campaign.LatestAt, &campaign.CreatedAt, &campaign.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(campaignNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// ListCampaigns retrieves all campaigns owned by the given user.
func (r *Repository) ListCampaigns(ctx context.Context, userID uuid.UUID) ([]Campaign, error) {
	query := `SELECT id, user_id, vapi_campaign_id, name, phone_number_id, assistant_id, workflow_id,
		status, total_leads, earliest_at, latest_at, created_at, updated_at
		FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var items []Campaign
	for rows.Next() {
		var campaign Campaign
		if err := rows.Scan(
			&campaign.ID, &campaign.UserID, &campaign.VapiCampaignID, &campaign.Name, &campaign.PhoneNumberID,
			&campaign.AssistantID, &campaign.WorkflowID, &campaign.Status, &campaign.TotalLeads,
			&campaign.EarliestAt, &campaign.LatestAt, &campaign.CreatedAt, &campaign.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		items = append(items, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	return items, nil
}

// UpdateCampaignStatus updates the derived status of a campaign.
func (r *Repository) UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE campaigns SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(campaignNotFoundMsg)
	}

	return nil
}

// ToResponse converts a Call to its transport representation.
func (c *Call) ToResponse() transport.CallResponse {
	return transport.CallResponse{
		ID:          c.ID,
		AssistantID: derefString(c.AssistantID),
		CallID:      c.CallID,
		CampaignID:  c.CampaignID,
		Name:        derefString(c.Name),
		Phone:       derefString(c.Phone),
		Email:       derefString(c.Email),
		Status:      c.Status,
		Cost:        c.Cost,
		CreatedAt:   c.CreatedAt,
	}
}

// ToResponse converts a Campaign to its transport representation.
func (c *Campaign) ToResponse() transport.CampaignResponse {
	return transport.CampaignResponse{
		ID:             c.ID,
		VapiCampaignID: c.VapiCampaignID,
		Name:           c.Name,
		PhoneNumberID:  c.PhoneNumberID,
		AssistantID:    derefString(c.AssistantID),
		WorkflowID:     derefString(c.WorkflowID),
		Status:         c.Status,
		TotalLeads:     c.TotalLeads,
		EarliestAt:     c.EarliestAt,
		LatestAt:       c.LatestAt,
		CreatedAt:      c.CreatedAt,
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
