package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CreatePartRequest payload.
type CreatePartRequest struct {
	Name         string              `json:"name"`
	SKU          string              `json:"sku"`
	Category     domain.PartCategory `json:"category"`
	Vendor       string              `json:"vendor"`
	Unit         string              `json:"unit"`
	InitialStock int                 `json:"initial_stock"`
	MinStock     int                 `json:"min_stock"`
	Location     string              `json:"location"`
	Price        decimal.Decimal     `json:"price"`
	Status       domain.PartStatus   `json:"status"`
}

// UpdatePartRequest payload. Stock is changed through movements only.
type UpdatePartRequest struct {
	Name     *string              `json:"name"`
	SKU      *string              `json:"sku"`
	Category *domain.PartCategory `json:"category"`
	Vendor   *string              `json:"vendor"`
	Unit     *string              `json:"unit"`
	MinStock *int                 `json:"min_stock"`
	Location *string              `json:"location"`
	Price    *decimal.Decimal     `json:"price"`
	Status   *domain.PartStatus   `json:"status"`
}

// PartResponse representation.
type PartResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	SKU       string              `json:"sku"`
	Category  domain.PartCategory `json:"category"`
	Vendor    string              `json:"vendor"`
	Unit      string              `json:"unit"`
	Stock     int                 `json:"stock"`
	MinStock  int                 `json:"min_stock"`
	LowStock  bool                `json:"low_stock"`
	Location  string              `json:"location"`
	Price     decimal.Decimal     `json:"price"`
	Status    domain.PartStatus   `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// RecordMovementRequest payload. For adjust, quantity is the target stock.
type RecordMovementRequest struct {
	PartID    string              `json:"part_id"`
	Type      domain.MovementType `json:"type"`
	Quantity  int                 `json:"quantity"`
	Reference string              `json:"reference"`
	Notes     string              `json:"notes"`
}

// MovementResponse representation.
type MovementResponse struct {
	ID        string              `json:"id"`
	PartID    string              `json:"part_id"`
	PartName  string              `json:"part_name"`
	Type      domain.MovementType `json:"type"`
	Quantity  int                 `json:"quantity"`
	Reference string              `json:"reference"`
	Notes     string              `json:"notes"`
	ActorID   string              `json:"actor_id"`
	At        time.Time           `json:"at"`
}
