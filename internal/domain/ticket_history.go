package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated   TicketChangeType = "CREATED"
	ChangeTypeStatus    TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee  TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority  TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeDiagnosis TicketChangeType = "DIAGNOSIS_ADDED"
	ChangeTypeAction    TicketChangeType = "ACTION_ADDED"
	ChangeTypeResolved  TicketChangeType = "RESOLVED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	Note       string
	CreatedAt  time.Time
}
