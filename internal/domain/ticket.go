package domain

import "time"

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingForParts TicketStatus = "waiting_for_parts"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// TicketStatuses lists every known status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusWaitingForParts,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// HasResolution reports whether tickets in this status carry a resolution.
func (s TicketStatus) HasResolution() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates repair urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Diagnostic is one append-only diagnosis record.
type Diagnostic struct {
	Symptom   string    `json:"symptom"`
	Diagnosis string    `json:"diagnosis"`
	By        string    `json:"by"`
	At        time.Time `json:"at"`
}

// PartUsage is a part consumed by a repair action.
type PartUsage struct {
	PartID   string `json:"part_id"`
	PartName string `json:"part_name"`
	Quantity int    `json:"quantity"`
}

// RepairAction is one append-only action record.
type RepairAction struct {
	ActionTaken string      `json:"action_taken"`
	PartsUsed   []PartUsage `json:"parts_used"`
	By          string      `json:"by"`
	At          time.Time   `json:"at"`
}

// Resolution is set once when a ticket is resolved.
type Resolution struct {
	RootCause            string    `json:"root_cause"`
	Solution             string    `json:"solution"`
	PartsConsumedSummary string    `json:"parts_consumed_summary"`
	Tags                 []string  `json:"tags"`
	ResolvedBy           string    `json:"resolved_by"`
	ResolvedAt           time.Time `json:"resolved_at"`
}

// Ticket is the aggregate for a unit of repair work.
type Ticket struct {
	ID               string
	Code             string
	Subject          string
	InitialComplaint string
	Description      string
	CustomerID       string
	DeviceID         *string
	CreatedBy        string
	AssigneeID       *string
	Priority         TicketPriority
	Status           TicketStatus
	Tags             []string
	Diagnostics      []Diagnostic
	Actions          []RepairAction
	Resolution       *Resolution
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// ConsumedParts totals part quantities across all actions, in first-use order.
func (t *Ticket) ConsumedParts() []PartUsage {
	index := map[string]int{}
	var totals []PartUsage
	for _, action := range t.Actions {
		for _, used := range action.PartsUsed {
			if i, ok := index[used.PartID]; ok {
				totals[i].Quantity += used.Quantity
				continue
			}
			index[used.PartID] = len(totals)
			totals = append(totals, used)
		}
	}
	return totals
}
