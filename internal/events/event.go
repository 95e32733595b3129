// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"

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
// Lead Lifecycle Events
// =============================================================================

// LeadCaptured is published when a new lead is captured and persisted.
type LeadCaptured struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	SourceType      string     `json:"sourceType"`
	Score           int        `json:"score"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	Phone           string     `json:"phone"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

// LeadStatusChanged is published after a validated status transition commits.
type LeadStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	PreviousStatus string     `json:"previousStatus"`
	NewStatus      string     `json:"newStatus"`
	ChangedBy      *uuid.UUID `json:"changedBy,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadScoreChanged is published when a scoring event persists a new score.
type LeadScoreChanged struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	PreviousScore int       `json:"previousScore"`
	NewScore      int       `json:"newScore"`
	Trigger       string    `json:"trigger"` // capture | activity
}

func (e LeadScoreChanged) EventName() string { return "leads.lead.score_changed" }

// LeadReassigned is published when a lead's active assignment is superseded.
type LeadReassigned struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	PreviousAgentID uuid.UUID `json:"previousAgentId"`
	NewAgentID      uuid.UUID `json:"newAgentId"`
	Reason          string    `json:"reason"`
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }
