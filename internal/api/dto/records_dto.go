package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// KnowledgeRequest payload for manual articles.
type KnowledgeRequest struct {
	Title          string   `json:"title"`
	Symptom        string   `json:"symptom"`
	Diagnosis      string   `json:"diagnosis"`
	Solution       string   `json:"solution"`
	RelatedPartIDs []string `json:"related_part_ids"`
	Tags           []string `json:"tags"`
}

// KnowledgeFromTicketRequest payload.
type KnowledgeFromTicketRequest struct {
	TicketID string `json:"ticket_id"`
}

// KnowledgeResponse representation.
type KnowledgeResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Symptom        string    `json:"symptom"`
	Diagnosis      string    `json:"diagnosis"`
	Solution       string    `json:"solution"`
	SourceTicketID *string   `json:"source_ticket_id"`
	RelatedPartIDs []string  `json:"related_part_ids"`
	Tags           []string  `json:"tags"`
	IsPublished    bool      `json:"is_published"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateRmaRequest payload.
type CreateRmaRequest struct {
	Title        string `json:"title"`
	CustomerName string `json:"customer_name"`
	ProductName  string `json:"product_name"`
	ProductSKU   string `json:"product_sku"`
	Serial       string `json:"serial"`
	TicketID     string `json:"ticket_id"`
}

// RmaActionRequest payload.
type RmaActionRequest struct {
	Type domain.RmaActionType `json:"type"`
	Note string               `json:"note"`
}

// RmaResponse representation.
type RmaResponse struct {
	ID           string             `json:"id"`
	Code         string             `json:"code"`
	Title        string             `json:"title"`
	CustomerName string             `json:"customer_name"`
	ProductName  string             `json:"product_name"`
	ProductSKU   string             `json:"product_sku"`
	Serial       string             `json:"serial"`
	TicketID     *string            `json:"ticket_id"`
	Status       domain.RmaStatus   `json:"status"`
	Actions      []domain.RmaAction `json:"actions"`
	CreatedBy    string             `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CustomerResponse representation.
type CustomerResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Phone     string           `json:"phone"`
	Address   string           `json:"address"`
	Notes     string           `json:"notes"`
	Devices   []DeviceResponse `json:"devices,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// DeviceResponse representation.
type DeviceResponse struct {
	ID           string `json:"id"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Type         string `json:"type"`
	Description  string `json:"description"`
}

// AuditLogResponse representation.
type AuditLogResponse struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	RouteKey     string    `json:"route_key"`
	Status       int       `json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	ActorID      *string   `json:"actor_id"`
	IP           string    `json:"ip"`
	UserAgent    string    `json:"user_agent"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
