package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// RmaService tracks units returned to vendors.
type RmaService struct {
	store       repository.Store
	codes       *CodeGenerator
	maxAttempts int
	events      publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewRmaService constructs the service.
func NewRmaService(store repository.Store, codes *CodeGenerator, maxAttempts int, dispatcher events.Dispatcher, logger *zap.Logger) *RmaService {
	logger = nopLogger(logger)
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &RmaService{
		store:       store,
		codes:       codes,
		maxAttempts: maxAttempts,
		events:      publisher{dispatcher: dispatcher, logger: logger},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateRmaInput opens an RMA record.
type CreateRmaInput struct {
	Title        string `validate:"required,notblank,max=200"`
	CustomerName string `validate:"required,notblank,max=200"`
	ProductName  string `validate:"required,notblank,max=200"`
	ProductSKU   string `validate:"max=100"`
	Serial       string `validate:"max=100"`
	TicketID     string
}

// RmaActionInput appends one step.
type RmaActionInput struct {
	Type domain.RmaActionType `validate:"required,oneof=receive_unit send_to_vendor vendor_update replace repair reject return_to_customer cancel"`
	Note string               `validate:"max=2000"`
}

// RmaListFilter narrows RMA listings.
type RmaListFilter struct {
	Status     domain.RmaStatus
	SearchTerm string
}

// Create opens a new RMA record in status new.
func (s *RmaService) Create(ctx context.Context, input CreateRmaInput, actor domain.Actor) (*domain.RmaRecord, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		rma *domain.RmaRecord
		err error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		rma, err = s.createOnce(ctx, input, actor)
		if !errors.Is(err, errLostRace) {
			break
		}
		s.logger.Warn("rma code collision, retrying", zap.Int("attempt", attempt))
	}
	if errors.Is(err, errLostRace) {
		return nil, apperrors.NewConflict("could not allocate a unique rma code", map[string]any{"attempts": s.maxAttempts})
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("rma created", zap.String("rma_id", rma.ID), zap.String("code", rma.Code))
	return rma, nil
}

func (s *RmaService) createOnce(ctx context.Context, input CreateRmaInput, actor domain.Actor) (*domain.RmaRecord, error) {
	var rma *domain.RmaRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var ticketID *string
		if id := strings.TrimSpace(input.TicketID); id != "" {
			ticket, err := repos.Tickets.GetByID(ctx, id)
			if err != nil {
				return mapRepoError(err, "ticket", map[string]any{"ticket_id": id})
			}
			ticketID = &ticket.ID
		}
		code, err := s.codes.Next(ctx, repos.Sequences, repos.RMAs)
		if err != nil {
			return apperrors.MapError(err)
		}
		rma = &domain.RmaRecord{
			Code:         code,
			Title:        strings.TrimSpace(input.Title),
			CustomerName: strings.TrimSpace(input.CustomerName),
			ProductName:  strings.TrimSpace(input.ProductName),
			ProductSKU:   strings.TrimSpace(input.ProductSKU),
			Serial:       strings.TrimSpace(input.Serial),
			TicketID:     ticketID,
			Status:       domain.RmaStatusNew,
			Actions:      []domain.RmaAction{},
			CreatedBy:    actor.ID,
		}
		if err := repos.RMAs.Create(ctx, rma); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errLostRace
			}
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rma, nil
}

// AddAction appends an action and moves the record to the status it implies.
func (s *RmaService) AddAction(ctx context.Context, rmaID string, input RmaActionInput, actor domain.Actor) (*domain.RmaRecord, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		rma       *domain.RmaRecord
		oldStatus domain.RmaStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		rma, err = repos.RMAs.GetByIDForUpdate(ctx, rmaID)
		if err != nil {
			return mapRepoError(err, "rma", map[string]any{"rma_id": rmaID})
		}
		next, ok := NextRmaStatus(rma.Status, input.Type)
		if !ok {
			return apperrors.NewDomainError(apperrors.CodeInvalidTransition,
				"action not allowed in current rma status", http.StatusConflict,
				map[string]any{"status": rma.Status, "action": input.Type})
		}
		oldStatus = rma.Status
		rma.Actions = append(rma.Actions, domain.RmaAction{
			Type: input.Type,
			Note: strings.TrimSpace(input.Note),
			By:   actor.ID,
			At:   s.now(),
		})
		rma.Status = next
		return apperrors.MapError(repos.RMAs.Update(ctx, rma))
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:        events.EventRmaActionAdded,
		AggregateID: rma.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.RmaActionAddedPayload{
			Code:      rma.Code,
			Action:    input.Type,
			OldStatus: oldStatus,
			NewStatus: rma.Status,
		},
	})
	return rma, nil
}

// Get fetches one RMA record.
func (s *RmaService) Get(ctx context.Context, rmaID string) (*domain.RmaRecord, error) {
	rma, err := s.store.Repositories().RMAs.GetByID(ctx, rmaID)
	if err != nil {
		return nil, mapRepoError(err, "rma", map[string]any{"rma_id": rmaID})
	}
	return rma, nil
}

// List returns a page of RMA records.
func (s *RmaService) List(ctx context.Context, filter RmaListFilter, pagination Pagination) (PageResult[domain.RmaRecord], error) {
	page := pagination.page()
	records, total, err := s.store.Repositories().RMAs.List(ctx, repository.RmaFilter{
		Status:     filter.Status,
		SearchTerm: filter.SearchTerm,
		Page:       page,
	})
	if err != nil {
		return PageResult[domain.RmaRecord]{}, apperrors.MapError(err)
	}
	return newPageResult(records, total, page), nil
}
