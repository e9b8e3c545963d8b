package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CustomerRequest identifies or registers a customer during intake.
type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// DeviceRequest identifies or registers a device during intake.
type DeviceRequest struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Type         string `json:"type"`
	Description  string `json:"description"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject          string                `json:"subject"`
	InitialComplaint string                `json:"initial_complaint"`
	Description      string                `json:"description"`
	CustomerID       string                `json:"customer_id"`
	Customer         *CustomerRequest      `json:"customer"`
	DeviceID         string                `json:"device_id"`
	Device           *DeviceRequest        `json:"device"`
	Priority         domain.TicketPriority `json:"priority"`
	AssigneeID       string                `json:"assignee_id"`
	Tags             []string              `json:"tags"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianID string `json:"technician_id"`
}

// DiagnosisRequest payload.
type DiagnosisRequest struct {
	Symptom   string `json:"symptom"`
	Diagnosis string `json:"diagnosis"`
}

// PartUsageRequest is one consumed part.
type PartUsageRequest struct {
	PartID   string `json:"part_id"`
	Quantity int    `json:"quantity"`
}

// ActionRequest payload.
type ActionRequest struct {
	ActionTaken string             `json:"action_taken"`
	PartsUsed   []PartUsageRequest `json:"parts_used"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   string              `json:"note"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	RootCause            string   `json:"root_cause"`
	Solution             string   `json:"solution"`
	PartsConsumedSummary string   `json:"parts_consumed_summary"`
	Tags                 []string `json:"tags"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID               string                `json:"id"`
	Code             string                `json:"code"`
	Subject          string                `json:"subject"`
	InitialComplaint string                `json:"initial_complaint"`
	CustomerID       string                `json:"customer_id"`
	DeviceID         *string               `json:"device_id"`
	AssigneeID       *string               `json:"assignee_id"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	Tags             []string              `json:"tags"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description        string                `json:"description"`
	CreatedBy          string                `json:"created_by"`
	Diagnostics        []domain.Diagnostic   `json:"diagnostics"`
	Actions            []domain.RepairAction `json:"actions"`
	Resolution         *domain.Resolution    `json:"resolution"`
	CompletedAt        *time.Time            `json:"completed_at"`
	AllowedTransitions []domain.TicketStatus `json:"allowed_transitions"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  string                  `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	Note       string                  `json:"note,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
