// Package transport defines request/response DTOs for the calendar module.
package transport

import "time"

// SaveTokensRequest stores a connected calendar account's credential.
type SaveTokensRequest struct {
	Email       string `json:"email" validate:"required,email"`
	AccessToken string `json:"accessToken" validate:"required"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn" validate:"required,gt=0"`
}

// SlotInput is one candidate time range as the tool call supplies it.
type SlotInput struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// CheckAvailabilityRequest asks for the earliest free slot inside the
// candidate ranges.
type CheckAvailabilityRequest struct {
	Email          string      `json:"email" validate:"required,email"`
	AvailableSlots []SlotInput `json:"availableSlots" validate:"required,min=1"`
}

// SlotOutput is one resolved UTC interval.
type SlotOutput struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AvailabilityResponse reports the outcome of an availability check. A fully
// busy calendar yields Available=false with no slot, which is a normal
// answer, not an error.
type AvailabilityResponse struct {
	Available bool         `json:"available"`
	Slot      *SlotOutput  `json:"slot,omitempty"`
	BusySlots []SlotOutput `json:"busySlots"`
}

// BookMeetingRequest books a confirmed slot.
type BookMeetingRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Summary   string `json:"summary"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// BookMeetingResponse carries the created event id.
type BookMeetingResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// EventResponse is one upcoming calendar event.
type EventResponse struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}
