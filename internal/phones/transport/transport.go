// Package transport defines request/response DTOs for the phones module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseRequest leases a new number and registers it with the voice platform.
type PurchaseRequest struct {
	Number      string `json:"number" validate:"required"`
	AssistantID string `json:"assistantId"`
}

// ImportRequest registers a number that already exists at the provisioning
// provider with the voice platform.
type ImportRequest struct {
	Number      string `json:"number" validate:"required"`
	AssistantID string `json:"assistantId"`
}

// AttachRequest links an already-imported voice-platform phone resource to
// the operator's inventory.
type AttachRequest struct {
	PhoneID string `json:"phoneId" validate:"required"`
}

// UpdateInboundRequest patches inbound routing for a phone. At least one
// field must be supplied.
type UpdateInboundRequest struct {
	AssistantID    string `json:"assistantId"`
	WorkflowID     string `json:"workflowId"`
	FallbackNumber string `json:"fallbackNumber"`
}

// DeleteResult reports a deletion's per-system outcome. Deleted refers to the
// local inventory row; VapiDeleted to the voice-platform resource. The two
// can legitimately diverge.
type DeleteResult struct {
	Deleted     bool `json:"deleted"`
	VapiDeleted bool `json:"vapi_deleted"`
}

// PhoneResponse merges the authoritative local row with the voice platform's
// live view. Status degrades to "unknown" when the live fetch fails.
type PhoneResponse struct {
	ID             uuid.UUID `json:"id"`
	PhoneID        string    `json:"phoneId"`
	Number         string    `json:"number"`
	FallbackNumber string    `json:"fallbackNumber,omitempty"`
	Status         string    `json:"status"`
	AssistantID    string    `json:"assistantId,omitempty"`
	WorkflowID     string    `json:"workflowId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
