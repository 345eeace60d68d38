// Package transport defines request/response DTOs for the campaigns module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate campaign statuses derived from per-lead outcomes.
const (
	StatusSuccess        = "success"
	StatusFailed         = "failed"
	StatusPartialSuccess = "partial_success"
)

// Per-lead dispatch outcomes.
const (
	OutcomeCalled = "called"
	OutcomeFailed = "failed"
)

// CustomerInput is one call target supplied inline on the calls surface.
type CustomerInput struct {
	Number string `json:"number" validate:"required"`
	Name   string `json:"name"`
}

// ScheduleInput carries either a prebuilt UTC start or the operator's local
// wall-clock pick. When EarliestAt is set the wall-clock fields are ignored.
type ScheduleInput struct {
	EarliestAt *time.Time `json:"earliestAt,omitempty"`

	Date     string `json:"date,omitempty"`
	Hour     int    `json:"hour,omitempty"`
	Minute   int    `json:"minute,omitempty"`
	Meridiem string `json:"meridiem,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// CreateCallRequest places a single call or a platform-side fan-out.
type CreateCallRequest struct {
	AssistantID   string          `json:"assistantId"`
	WorkflowID    string          `json:"workflowId"`
	PhoneNumberID string          `json:"phoneNumberId" validate:"required"`
	Customer      *CustomerInput  `json:"customer,omitempty"`
	Customers     []CustomerInput `json:"customers,omitempty"`
	Schedule      *ScheduleInput  `json:"schedule,omitempty"`
}

// LeadInput is one raw lead row submitted with a campaign.
type LeadInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email"`
}

// CreateCampaignRequest submits a platform-native bulk campaign.
type CreateCampaignRequest struct {
	Name          string         `json:"name" validate:"required"`
	PhoneNumberID string         `json:"phoneNumberId" validate:"required"`
	AssistantID   string         `json:"assistantId"`
	WorkflowID    string         `json:"workflowId"`
	Leads         []LeadInput    `json:"leads" validate:"required,min=1,dive"`
	Schedule      *ScheduleInput `json:"schedule,omitempty"`
}

// DispatchResult is the per-lead outcome of a client-side fan-out. Entries
// preserve the input lead order.
type DispatchResult struct {
	Name    string      `json:"name"`
	Phone   string      `json:"phone"`
	Outcome string      `json:"outcome"`
	CallID  string      `json:"callId,omitempty"`
	Cost    float64     `json:"cost,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// DispatchSummary is the aggregate of one client-side fan-out run.
type DispatchSummary struct {
	Status     string           `json:"status"`
	TotalLeads int              `json:"totalLeads"`
	Called     int              `json:"called"`
	Failed     int              `json:"failed"`
	Results    []DispatchResult `json:"results"`
}

// CallResponse is one locally persisted call record.
type CallResponse struct {
	ID          uuid.UUID  `json:"id"`
	AssistantID string     `json:"assistantId,omitempty"`
	CallID      string     `json:"callId"`
	CampaignID  *uuid.UUID `json:"campaignId,omitempty"`
	Name        string     `json:"name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Status      string     `json:"status"`
	Cost        float64    `json:"cost"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CampaignResponse is one campaign with its derived aggregate status.
type CampaignResponse struct {
	ID             uuid.UUID  `json:"id"`
	VapiCampaignID string     `json:"vapiCampaignId"`
	Name           string     `json:"name"`
	PhoneNumberID  string     `json:"phoneNumberId"`
	AssistantID    string     `json:"assistantId,omitempty"`
	WorkflowID     string     `json:"workflowId,omitempty"`
	Status         string     `json:"status"`
	TotalLeads     int        `json:"totalLeads"`
	EarliestAt     *time.Time `json:"earliestAt,omitempty"`
	LatestAt       *time.Time `json:"latestAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
