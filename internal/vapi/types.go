package vapi

import "time"

// Customer is one call target as the platform expects it.
type Customer struct {
	Number    string `json:"number"`
	Name      string `json:"name,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// SchedulePlan bounds when the platform may start a call. The platform allows
// at most one hour between EarliestAt and LatestAt.
type SchedulePlan struct {
	EarliestAt time.Time  `json:"earliestAt"`
	LatestAt   *time.Time `json:"latestAt,omitempty"`
}

// CallRequest creates one call (Customer) or a platform-side fan-out (Customers).
type CallRequest struct {
	AssistantID   string        `json:"assistantId,omitempty"`
	WorkflowID    string        `json:"workflowId,omitempty"`
	PhoneNumberID string        `json:"phoneNumberId"`
	Customer      *Customer     `json:"customer,omitempty"`
	Customers     []Customer    `json:"customers,omitempty"`
	SchedulePlan  *SchedulePlan `json:"schedulePlan,omitempty"`
}

// Call is the platform's call resource, reduced to the fields the core reads.
type Call struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Cost        float64  `json:"cost"`
	AssistantID string   `json:"assistantId,omitempty"`
	Customer    Customer `json:"customer,omitempty"`
}

// CampaignRequest creates a platform-native bulk campaign. AssistantID and
// WorkflowID are mutually exclusive; the caller sets exactly one.
type CampaignRequest struct {
	Name          string        `json:"name"`
	PhoneNumberID string        `json:"phoneNumberId"`
	AssistantID   string        `json:"assistantId,omitempty"`
	WorkflowID    string        `json:"workflowId,omitempty"`
	Customers     []Customer    `json:"customers"`
	SchedulePlan  *SchedulePlan `json:"schedulePlan,omitempty"`
}

// CampaignCall is one entry of a campaign's call map.
type CampaignCall struct {
	Status string `json:"status"`
}

// Campaign is the platform's campaign resource. Calls is keyed by the
// platform call id.
type Campaign struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Status        string                  `json:"status"`
	PhoneNumberID string                  `json:"phoneNumberId"`
	AssistantID   string                  `json:"assistantId,omitempty"`
	WorkflowID    string                  `json:"workflowId,omitempty"`
	Calls         map[string]CampaignCall `json:"calls,omitempty"`
}

// ImportPhoneRequest registers a telephony-provider number with the platform.
type ImportPhoneRequest struct {
	Provider         string `json:"provider"`
	Number           string `json:"number"`
	TwilioAccountSID string `json:"twilioAccountSid"`
	TwilioAuthToken  string `json:"twilioAuthToken"`
	AssistantID      string `json:"assistantId,omitempty"`
}

// FallbackDestination routes an inbound call when the assistant cannot answer.
type FallbackDestination struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PhoneNumberUpdate patches inbound settings on a phone resource.
type PhoneNumberUpdate struct {
	AssistantID         string               `json:"assistantId,omitempty"`
	WorkflowID          string               `json:"workflowId,omitempty"`
	FallbackDestination *FallbackDestination `json:"fallbackDestination,omitempty"`
}

// PhoneNumber is the platform's phone resource.
type PhoneNumber struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Status      string     `json:"status"`
	AssistantID string     `json:"assistantId,omitempty"`
	WorkflowID  string     `json:"workflowId,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
