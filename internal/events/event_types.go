package events

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketResolved        EventType = "ticket_resolved"
	EventTicketActionRecorded  EventType = "ticket_action_recorded"
	EventStockMoved            EventType = "stock_moved"
	EventLowStock              EventType = "low_stock"
	EventKnowledgeEntryCreated EventType = "knowledge_entry_created"
	EventRmaActionAdded        EventType = "rma_action_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorFrom converts the authenticated caller.
func ActorFrom(actor domain.Actor) Actor {
	return Actor{UserID: actor.ID, Role: actor.Role}
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code       string                `json:"code"`
	CustomerID string                `json:"customer_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Subject    string                `json:"subject"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Code         string  `json:"code"`
	OldAssignee  *string `json:"old_assignee_id,omitempty"`
	TechnicianID string  `json:"technician_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Code      string              `json:"code"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	Code        string                `json:"code"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Code      string `json:"code"`
	RootCause string `json:"root_cause"`
	Solution  string `json:"solution"`
}

// TicketActionRecordedPayload payload.
type TicketActionRecordedPayload struct {
	Code        string             `json:"code"`
	ActionTaken string             `json:"action_taken"`
	PartsUsed   []domain.PartUsage `json:"parts_used"`
}

// StockMovedPayload payload.
type StockMovedPayload struct {
	MovementID string              `json:"movement_id"`
	PartName   string              `json:"part_name"`
	Type       domain.MovementType `json:"type"`
	Quantity   int                 `json:"quantity"`
	StockAfter int                 `json:"stock_after"`
	Reference  string              `json:"reference,omitempty"`
}

// LowStockPayload payload.
type LowStockPayload struct {
	PartName string `json:"part_name"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
}

// KnowledgeEntryCreatedPayload payload.
type KnowledgeEntryCreatedPayload struct {
	Title          string  `json:"title"`
	SourceTicketID *string `json:"source_ticket_id,omitempty"`
}

// RmaActionAddedPayload payload.
type RmaActionAddedPayload struct {
	Code      string               `json:"code"`
	Action    domain.RmaActionType `json:"action"`
	OldStatus domain.RmaStatus     `json:"old_status"`
	NewStatus domain.RmaStatus     `json:"new_status"`
}
