package domain

import "time"

// AuditLog records one handled API request.
type AuditLog struct {
	ID           string
	RequestID    string
	Method       string
	Path         string
	RouteKey     string
	Status       int
	DurationMs   int64
	ActorID      *string
	IP           string
	UserAgent    string
	ResourceType string
	ResourceID   string
	CreatedAt    time.Time
}
