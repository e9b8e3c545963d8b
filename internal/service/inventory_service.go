package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// movementRequest is one stock change routed through applyMovement.
type movementRequest struct {
	PartID    string
	Type      domain.MovementType
	Quantity  int
	Reference string
	Notes     string
	ActorID   string
}

// stockChange is the committed outcome of a movement, used for events.
type stockChange struct {
	Movement domain.StockMovement
	Part     domain.Part
}

// applyMovement is the only code path that changes Part.stock. It must run
// inside a transaction: the part row is locked, the guarded stock update and
// the ledger insert commit or roll back together.
func applyMovement(ctx context.Context, repos repository.Repositories, req movementRequest) (*stockChange, error) {
	part, err := repos.Parts.GetByIDForUpdate(ctx, req.PartID)
	if err != nil {
		return nil, mapRepoError(err, "part", map[string]any{"part_id": req.PartID})
	}

	quantity := req.Quantity
	notes := strings.TrimSpace(req.Notes)
	var delta int
	switch req.Type {
	case domain.MovementIn:
		if quantity < 1 {
			return nil, apperrors.NewValidationError("quantity must be at least 1", map[string]any{"quantity": quantity})
		}
		delta = quantity
	case domain.MovementOut:
		if quantity < 1 {
			return nil, apperrors.NewValidationError("quantity must be at least 1", map[string]any{"quantity": quantity})
		}
		if part.Stock < quantity {
			return nil, apperrors.NewInsufficientStock(part.Name, part.Stock, quantity)
		}
		delta = -quantity
	case domain.MovementAdjust:
		if quantity < 0 {
			return nil, apperrors.NewValidationError("adjust target must not be negative", map[string]any{"quantity": quantity})
		}
		delta = quantity - part.Stock
		summary := fmt.Sprintf("adjusted from %d to %d", part.Stock, quantity)
		if notes != "" {
			summary += ": " + notes
		}
		notes = summary
		quantity = delta
	default:
		return nil, apperrors.NewValidationError("unknown movement type", map[string]any{"type": req.Type})
	}

	updated, err := repos.Parts.ApplyStockDelta(ctx, part.ID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, apperrors.NewInsufficientStock(part.Name, part.Stock, -delta)
		}
		return nil, mapRepoError(err, "part", map[string]any{"part_id": part.ID})
	}

	movement := &domain.StockMovement{
		PartID:           part.ID,
		PartNameSnapshot: part.Name,
		Type:             req.Type,
		Quantity:         quantity,
		Reference:        strings.TrimSpace(req.Reference),
		Notes:            notes,
		ActorID:          req.ActorID,
	}
	if err := repos.Movements.Create(ctx, movement); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &stockChange{Movement: *movement, Part: *updated}, nil
}

// stockEvents builds the events for committed movements, including a
// low-stock warning for parts that dropped under their minimum.
func stockEvents(actor domain.Actor, changes []stockChange) []events.Event {
	var out []events.Event
	for _, change := range changes {
		out = append(out, events.Event{
			Type:        events.EventStockMoved,
			AggregateID: change.Part.ID,
			Actor:       events.ActorFrom(actor),
			Payload: events.StockMovedPayload{
				MovementID: change.Movement.ID,
				PartName:   change.Movement.PartNameSnapshot,
				Type:       change.Movement.Type,
				Quantity:   change.Movement.Quantity,
				StockAfter: change.Part.Stock,
				Reference:  change.Movement.Reference,
			},
		})
		if change.Part.BelowMinimum() {
			out = append(out, events.Event{
				Type:        events.EventLowStock,
				AggregateID: change.Part.ID,
				Actor:       events.ActorFrom(actor),
				Payload: events.LowStockPayload{
					PartName: change.Part.Name,
					Stock:    change.Part.Stock,
					MinStock: change.Part.MinStock,
				},
			})
		}
	}
	return out
}

// InventoryService manages the part catalogue and the stock ledger.
type InventoryService struct {
	store  repository.Store
	events publisher
	logger *zap.Logger
}

// NewInventoryService constructs the service.
func NewInventoryService(store repository.Store, dispatcher events.Dispatcher, logger *zap.Logger) *InventoryService {
	logger = nopLogger(logger)
	return &InventoryService{
		store:  store,
		events: publisher{dispatcher: dispatcher, logger: logger},
		logger: logger,
	}
}

// CreatePartInput describes a new part. Stock enters through InitialStock,
// which is booked as an in movement.
type CreatePartInput struct {
	Name         string              `validate:"required,notblank,max=200"`
	SKU          string              `validate:"max=100"`
	Category     domain.PartCategory `validate:"omitempty,oneof=cpu motherboard ram storage gpu psu case cooler nic others"`
	Vendor       string              `validate:"max=200"`
	Unit         string              `validate:"max=20"`
	InitialStock int                 `validate:"gte=0"`
	MinStock     int                 `validate:"gte=0"`
	Location     string              `validate:"max=100"`
	Price        decimal.Decimal
	Status       domain.PartStatus `validate:"omitempty,oneof=active inactive discontinued"`
}

// UpdatePartInput changes catalogue fields only; it has no stock field.
type UpdatePartInput struct {
	Name     *string              `validate:"omitempty,notblank,max=200"`
	SKU      *string              `validate:"omitempty,max=100"`
	Category *domain.PartCategory `validate:"omitempty,oneof=cpu motherboard ram storage gpu psu case cooler nic others"`
	Vendor   *string              `validate:"omitempty,max=200"`
	Unit     *string              `validate:"omitempty,max=20"`
	MinStock *int                 `validate:"omitempty,gte=0"`
	Location *string              `validate:"omitempty,max=100"`
	Price    *decimal.Decimal
	Status   *domain.PartStatus `validate:"omitempty,oneof=active inactive discontinued"`
}

// PartListFilter narrows part listings.
type PartListFilter struct {
	Category     domain.PartCategory
	Status       domain.PartStatus
	SearchTerm   string
	LowStockOnly bool
}

// RecordMovementInput is a manual ledger entry. For adjust, Quantity is the
// absolute stock target.
type RecordMovementInput struct {
	PartID    string              `validate:"required"`
	Type      domain.MovementType `validate:"required,oneof=in out adjust"`
	Quantity  int
	Reference string `validate:"max=200"`
	Notes     string `validate:"max=1000"`
}

// MovementQuery narrows ledger queries.
type MovementQuery struct {
	PartID     string
	ActorID    string
	Type       domain.MovementType
	Reference  string
	From       *time.Time
	To         *time.Time
	SearchTerm string
}

// ReconcileResult compares the cached stock with the ledger.
type ReconcileResult struct {
	PartID      string `json:"part_id"`
	CachedStock int    `json:"cached_stock"`
	LedgerStock int    `json:"ledger_stock"`
	Consistent  bool   `json:"consistent"`
}

// CreatePart inserts a part and books its initial stock in one transaction.
func (s *InventoryService) CreatePart(ctx context.Context, input CreatePartInput, actor domain.Actor) (*domain.Part, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"Price": "gte"})
	}

	part := &domain.Part{
		Name:     strings.TrimSpace(input.Name),
		SKU:      strings.TrimSpace(input.SKU),
		Category: input.Category,
		Vendor:   strings.TrimSpace(input.Vendor),
		Unit:     strings.TrimSpace(input.Unit),
		MinStock: input.MinStock,
		Location: strings.TrimSpace(input.Location),
		Price:    input.Price,
		Status:   input.Status,
	}
	if part.Category == "" {
		part.Category = domain.PartCategoryOthers
	}
	if part.Unit == "" {
		part.Unit = "pcs"
	}
	if part.Status == "" {
		part.Status = domain.PartStatusActive
	}

	var changes []stockChange
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changes = nil
		if err := repos.Parts.Create(ctx, part); err != nil {
			return mapRepoError(err, "part", nil)
		}
		if input.InitialStock == 0 {
			return nil
		}
		change, err := applyMovement(ctx, repos, movementRequest{
			PartID:   part.ID,
			Type:     domain.MovementIn,
			Quantity: input.InitialStock,
			Notes:    "initial stock",
			ActorID:  actor.ID,
		})
		if err != nil {
			return err
		}
		part.Stock = change.Part.Stock
		part.UpdatedAt = change.Part.UpdatedAt
		changes = append(changes, *change)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("part created", zap.String("part_id", part.ID), zap.Int("stock", part.Stock))
	s.events.publish(ctx, stockEvents(actor, changes)...)
	return part, nil
}

// UpdatePart applies catalogue changes.
func (s *InventoryService) UpdatePart(ctx context.Context, partID string, input UpdatePartInput) (*domain.Part, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"Price": "gte"})
	}

	var part *domain.Part
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		part, err = repos.Parts.GetByIDForUpdate(ctx, partID)
		if err != nil {
			return mapRepoError(err, "part", map[string]any{"part_id": partID})
		}
		if input.Name != nil {
			part.Name = strings.TrimSpace(*input.Name)
		}
		if input.SKU != nil {
			part.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.Category != nil {
			part.Category = *input.Category
		}
		if input.Vendor != nil {
			part.Vendor = strings.TrimSpace(*input.Vendor)
		}
		if input.Unit != nil {
			part.Unit = strings.TrimSpace(*input.Unit)
		}
		if input.MinStock != nil {
			part.MinStock = *input.MinStock
		}
		if input.Location != nil {
			part.Location = strings.TrimSpace(*input.Location)
		}
		if input.Price != nil {
			part.Price = *input.Price
		}
		if input.Status != nil {
			part.Status = *input.Status
		}
		return mapRepoError(repos.Parts.Update(ctx, part), "part", map[string]any{"part_id": partID})
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// GetPart fetches one part.
func (s *InventoryService) GetPart(ctx context.Context, partID string) (*domain.Part, error) {
	part, err := s.store.Repositories().Parts.GetByID(ctx, partID)
	if err != nil {
		return nil, mapRepoError(err, "part", map[string]any{"part_id": partID})
	}
	return part, nil
}

// ListParts returns a page of parts.
func (s *InventoryService) ListParts(ctx context.Context, filter PartListFilter, pagination Pagination) (PageResult[domain.Part], error) {
	page := pagination.page()
	parts, total, err := s.store.Repositories().Parts.List(ctx, repository.PartFilter{
		Category:     filter.Category,
		Status:       filter.Status,
		SearchTerm:   filter.SearchTerm,
		LowStockOnly: filter.LowStockOnly,
		Page:         page,
	})
	if err != nil {
		return PageResult[domain.Part]{}, apperrors.MapError(err)
	}
	return newPageResult(parts, total, page), nil
}

// Reconcile compares a part's cached stock with the ledger sum.
func (s *InventoryService) Reconcile(ctx context.Context, partID string) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		part, err := repos.Parts.GetByIDForUpdate(ctx, partID)
		if err != nil {
			return mapRepoError(err, "part", map[string]any{"part_id": partID})
		}
		sum, err := repos.Movements.SumByPart(ctx, partID)
		if err != nil {
			return apperrors.MapError(err)
		}
		result = &ReconcileResult{
			PartID:      part.ID,
			CachedStock: part.Stock,
			LedgerStock: sum,
			Consistent:  part.Stock == sum,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Consistent {
		s.logger.Error("stock ledger mismatch",
			zap.String("part_id", partID),
			zap.Int("cached", result.CachedStock),
			zap.Int("ledger", result.LedgerStock))
	}
	return result, nil
}

// RecordMovement books one manual movement.
func (s *InventoryService) RecordMovement(ctx context.Context, input RecordMovementInput, actor domain.Actor) (*domain.StockMovement, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var change *stockChange
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		change, err = applyMovement(ctx, repos, movementRequest{
			PartID:    input.PartID,
			Type:      input.Type,
			Quantity:  input.Quantity,
			Reference: input.Reference,
			Notes:     input.Notes,
			ActorID:   actor.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock movement recorded",
		zap.String("part_id", change.Part.ID),
		zap.String("type", string(change.Movement.Type)),
		zap.Int("quantity", change.Movement.Quantity),
		zap.Int("stock", change.Part.Stock))
	s.events.publish(ctx, stockEvents(actor, []stockChange{*change})...)
	return &change.Movement, nil
}

// QueryMovements returns a page of ledger rows, newest first.
func (s *InventoryService) QueryMovements(ctx context.Context, query MovementQuery, pagination Pagination) (PageResult[domain.StockMovement], error) {
	page := pagination.page()
	movements, total, err := s.store.Repositories().Movements.List(ctx, query.filter(page))
	if err != nil {
		return PageResult[domain.StockMovement]{}, apperrors.MapError(err)
	}
	return newPageResult(movements, total, page), nil
}

func (q MovementQuery) filter(page repository.Page) repository.MovementFilter {
	return repository.MovementFilter{
		PartID:     q.PartID,
		ActorID:    q.ActorID,
		Type:       q.Type,
		Reference:  q.Reference,
		From:       q.From,
		To:         q.To,
		SearchTerm: q.SearchTerm,
		Page:       page,
	}
}
