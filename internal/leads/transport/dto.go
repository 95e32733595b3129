// Package transport defines the request and response shapes of the leads
// module. Validation tags describe structural constraints only; business
// rules live in the service and the store.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CaptureLeadRequest is the inbound shape for capturing a new lead.
type CaptureLeadRequest struct {
	FirstName          string     `json:"firstName" validate:"required,min=1,max=100"`
	LastName           string     `json:"lastName" validate:"required,min=1,max=100"`
	Email              *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone              string     `json:"phone" validate:"required,min=7,max=20"`
	Nationality        *string    `json:"nationality,omitempty" validate:"omitempty,max=100"`
	LanguagePreference *string    `json:"languagePreference,omitempty" validate:"omitempty,oneof=arabic english"`
	BudgetMin          *int       `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax          *int       `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	PropertyType       *string    `json:"propertyType,omitempty" validate:"omitempty,oneof=apartment villa townhouse commercial"`
	PreferredAreas     []string   `json:"preferredAreas,omitempty" validate:"omitempty,dive,min=1,max=100"`
	SourceType         string     `json:"sourceType" validate:"required,oneof=bayut propertyFinder dubizzle website walk_in referral"`
	CampaignID         *string    `json:"campaignId,omitempty" validate:"omitempty,max=100"`
	ReferrerAgentID    *uuid.UUID `json:"referrerAgentId,omitempty"`
	PropertyID         *uuid.UUID `json:"propertyId,omitempty"`
	UTMSource          *string    `json:"utmSource,omitempty" validate:"omitempty,max=100"`
	UTMMedium          *string    `json:"utmMedium,omitempty" validate:"omitempty,max=100"`
	UTMCampaign        *string    `json:"utmCampaign,omitempty" validate:"omitempty,max=100"`
	ResponseTimeMin    *int       `json:"responseTimeMinutes,omitempty" validate:"omitempty,min=0"`
}

// ActivityRequest logs an interaction with the lead.
type ActivityRequest struct {
	ActivityType string     `json:"activityType" validate:"required,oneof=call email whatsapp viewing meeting offer_made"`
	Outcome      *string    `json:"outcome,omitempty" validate:"omitempty,oneof=positive negative neutral"`
	Notes        *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	NextFollowUp *time.Time `json:"nextFollowUp,omitempty"`
	AgentID      *uuid.UUID `json:"agentId,omitempty"`
}

// InterestRequest records the lead's interest in a property.
type InterestRequest struct {
	PropertyID    uuid.UUID `json:"propertyId" validate:"required"`
	InterestLevel string    `json:"interestLevel" validate:"required,oneof=high medium low"`
}

// UpdateLeadRequest carries the optional facets of a lead update: a status
// transition, a logged activity, and property interests. Any combination is
// valid; each present facet is applied and validated independently.
type UpdateLeadRequest struct {
	Status    *string           `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified viewing_scheduled negotiation converted lost"`
	DealValue *float64          `json:"dealValue,omitempty" validate:"omitempty,gt=0"`
	Notes     *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ChangedBy *uuid.UUID        `json:"changedBy,omitempty"`
	Activity  *ActivityRequest  `json:"activity,omitempty"`
	Interests []InterestRequest `json:"interests,omitempty" validate:"omitempty,dive"`
}

type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              *string    `json:"email,omitempty"`
	Phone              string     `json:"phone"`
	Nationality        *string    `json:"nationality,omitempty"`
	LanguagePreference *string    `json:"languagePreference,omitempty"`
	BudgetMin          *int       `json:"budgetMin,omitempty"`
	BudgetMax          *int       `json:"budgetMax,omitempty"`
	PropertyType       *string    `json:"propertyType,omitempty"`
	PreferredAreas     []string   `json:"preferredAreas,omitempty"`
	SourceType         string     `json:"sourceType"`
	Status             string     `json:"status"`
	Score              int        `json:"score"`
	DealValue          *float64   `json:"dealValue,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type AssignmentResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	AgentID    uuid.UUID `json:"agentId"`
	Reason     *string   `json:"reason,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

type FollowUpTaskResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	AgentID   uuid.UUID `json:"agentId"`
	TaskType  string    `json:"taskType"`
	Priority  string    `json:"priority"`
	DueDate   time.Time `json:"dueDate"`
	Completed bool      `json:"completed"`
}

type StatusChangeResponse struct {
	LeadID         uuid.UUID `json:"leadId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedAt      time.Time `json:"changedAt"`
}

// CaptureLeadResponse is the capture outcome. Assignment and InitialTask are
// nil when no agent was available; the lead itself is still persisted.
type CaptureLeadResponse struct {
	Lead                LeadResponse          `json:"lead"`
	Assignment          *AssignmentResponse   `json:"assignment,omitempty"`
	InitialTask         *FollowUpTaskResponse `json:"initialTask,omitempty"`
	SuggestedProperties []uuid.UUID           `json:"suggestedProperties,omitempty"`
}

type UpdateLeadResponse struct {
	Lead         LeadResponse          `json:"lead"`
	StatusChange *StatusChangeResponse `json:"statusChange,omitempty"`
	Score        int                   `json:"score"`
	Reassignment *AssignmentResponse   `json:"reassignment,omitempty"`
}

// AssignedAgentResponse describes the current assignee on the detail view,
// including the agent's live active-lead count.
type AssignedAgentResponse struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	ActiveLeads int       `json:"activeLeads"`
}

type LeadActivityResponse struct {
	ID           uuid.UUID  `json:"id"`
	AgentID      *uuid.UUID `json:"agentId,omitempty"`
	ActivityType string     `json:"activityType"`
	Outcome      *string    `json:"outcome,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	NextFollowUp *time.Time `json:"nextFollowUp,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type PropertyInterestResponse struct {
	PropertyID    uuid.UUID `json:"propertyId"`
	InterestLevel string    `json:"interestLevel"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LeadDetailResponse is the full read view of one lead. History is oldest
// first, activities newest first, tasks soonest due first.
type LeadDetailResponse struct {
	Lead          LeadResponse               `json:"lead"`
	Assignment    *AssignmentResponse        `json:"assignment,omitempty"`
	AssignedAgent *AssignedAgentResponse     `json:"assignedAgent,omitempty"`
	Activities    []LeadActivityResponse     `json:"activities"`
	Interests     []PropertyInterestResponse `json:"interests"`
	History       []StatusChangeResponse     `json:"history"`
	Tasks         []FollowUpTaskResponse     `json:"tasks"`
}

type RecentCaptureResponse struct {
	LeadID     uuid.UUID `json:"leadId"`
	SourceType string    `json:"sourceType"`
	Status     string    `json:"status"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RecentActivityResponse is the read-only recency feed.
type RecentActivityResponse struct {
	Captures      []RecentCaptureResponse `json:"captures"`
	StatusChanges []StatusChangeResponse  `json:"statusChanges"`
}
