// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"callops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignDispatched is published when a bulk campaign has been submitted to
// the voice platform (platform fan-out) or fully dispatched locally.
type CampaignDispatched struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	UserID     uuid.UUID `json:"userId"`
	Name       string    `json:"name"`
	TotalLeads int       `json:"totalLeads"`
	Called     int       `json:"called"`
	Failed     int       `json:"failed"`
	Status     string    `json:"status"`
}

func (e CampaignDispatched) EventName() string { return "campaigns.dispatched" }

// CampaignStatusRefreshed is published after a deferred status pull from the
// voice platform updated the local campaign record.
type CampaignStatusRefreshed struct {
	BaseEvent
	CampaignID uuid.UUID `json:"campaignId"`
	UserID     uuid.UUID `json:"userId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
}

func (e CampaignStatusRefreshed) EventName() string { return "campaigns.status.refreshed" }

// =============================================================================
// Phone Domain Events
// =============================================================================

// PhoneNumberPurchased is published when a number has been provisioned,
// imported, and persisted locally.
type PhoneNumberPurchased struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	PhoneID     string    `json:"phoneId"`
	ProviderSID string    `json:"providerSid"`
	Number      string    `json:"number"`
}

func (e PhoneNumberPurchased) EventName() string { return "phones.purchased" }

// PhoneNumberDeleted is published when a number was removed from the local
// inventory. VapiDeleted is false when the upstream cleanup failed and needs
// manual follow-up.
type PhoneNumberDeleted struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	PhoneID     string    `json:"phoneId"`
	VapiDeleted bool      `json:"vapiDeleted"`
}

func (e PhoneNumberDeleted) EventName() string { return "phones.deleted" }

// ReconciliationWarning is published when a multi-system phone operation
// partially completed, leaving a resource that needs cleanup or follow-up.
type ReconciliationWarning struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	Step        string    `json:"step"`
	Number      string    `json:"number"`
	ProviderSID string    `json:"providerSid,omitempty"`
	Detail      string    `json:"detail"`
	OccurredOn  time.Time `json:"occurredOn"`
}

func (e ReconciliationWarning) EventName() string { return "phones.reconciliation.warning" }
