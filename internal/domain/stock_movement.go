package domain

import "time"

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementIn     MovementType = "in"
	MovementOut    MovementType = "out"
	MovementAdjust MovementType = "adjust"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut || t == MovementAdjust
}

// StockMovement is an immutable ledger entry. For adjust movements Quantity
// holds the signed delta.
type StockMovement struct {
	ID               string
	PartID           string
	PartNameSnapshot string
	Type             MovementType
	Quantity         int
	Reference        string
	Notes            string
	ActorID          string
	At               time.Time
}

// SignedDelta is the change this movement applied to the part's stock.
func (m *StockMovement) SignedDelta() int {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}
