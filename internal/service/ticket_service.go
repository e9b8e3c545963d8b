package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// errLostRace marks a create attempt that hit a unique key a concurrent
// transaction committed first. The whole unit of work is retried.
var errLostRace = errors.New("lost race on unique key")

// TicketService coordinates ticket workflows.
type TicketService struct {
	store       repository.Store
	codes       *CodeGenerator
	maxAttempts int
	events      publisher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Codes       *CodeGenerator
	MaxAttempts int
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := nopLogger(deps.Logger)
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &TicketService{
		store:       deps.Store,
		codes:       deps.Codes,
		maxAttempts: attempts,
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CustomerInput identifies a customer by phone, creating it when unknown.
type CustomerInput struct {
	Name    string `validate:"required,notblank,max=200"`
	Phone   string `validate:"required,notblank,max=50"`
	Address string `validate:"max=500"`
	Notes   string `validate:"max=1000"`
}

// DeviceInput identifies a device by serial number and model, creating it when unknown.
type DeviceInput struct {
	Brand        string `validate:"max=100"`
	Model        string `validate:"required,notblank,max=100"`
	SerialNumber string `validate:"required,notblank,max=100"`
	Type         string `validate:"max=50"`
	Description  string `validate:"max=1000"`
}

// CreateTicketInput describes ticket creation. Either CustomerID or Customer is required.
type CreateTicketInput struct {
	Subject          string `validate:"required,notblank,max=200"`
	InitialComplaint string `validate:"required,notblank,max=2000"`
	Description      string `validate:"max=5000"`
	CustomerID       string
	Customer         *CustomerInput
	DeviceID         string
	Device           *DeviceInput
	Priority         domain.TicketPriority `validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID       string
	Tags             []string `validate:"max=20,dive,max=50"`
}

// DiagnosisInput is one diagnosis record.
type DiagnosisInput struct {
	Symptom   string `validate:"required,notblank,max=2000"`
	Diagnosis string `validate:"required,notblank,max=2000"`
}

// PartUsageInput is one part consumed by an action.
type PartUsageInput struct {
	PartID   string `validate:"required"`
	Quantity int    `validate:"gte=1"`
}

// ActionInput is one repair action.
type ActionInput struct {
	ActionTaken string           `validate:"required,notblank,max=2000"`
	PartsUsed   []PartUsageInput `validate:"max=50,dive"`
}

// ResolveInput closes out the repair work.
type ResolveInput struct {
	RootCause            string   `validate:"max=2000"`
	Solution             string   `validate:"required,notblank,max=5000"`
	PartsConsumedSummary string   `validate:"max=2000"`
	Tags                 []string `validate:"max=20,dive,max=50"`
}

// TicketListFilter narrows ticket listings.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	CustomerID  *string
	SearchTerm  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Create registers a new repair ticket with a fresh code.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput, actor domain.Actor) (*domain.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CustomerID) == "" && input.Customer == nil {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"Customer": "required_without=CustomerID"})
	}

	var (
		ticket *domain.Ticket
		err    error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ticket, err = s.createOnce(ctx, input, actor)
		if !errors.Is(err, errLostRace) {
			break
		}
		s.logger.Warn("ticket create collided, retrying", zap.Int("attempt", attempt))
	}
	if errors.Is(err, errLostRace) {
		return nil, apperrors.NewConflict("could not allocate a unique ticket code", map[string]any{"attempts": s.maxAttempts})
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("code", ticket.Code))
	s.events.publish(ctx, events.Event{
		Type:        events.EventTicketCreated,
		AggregateID: ticket.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.TicketCreatedPayload{
			Code:       ticket.Code,
			CustomerID: ticket.CustomerID,
			Priority:   ticket.Priority,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

func (s *TicketService) createOnce(ctx context.Context, input CreateTicketInput, actor domain.Actor) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		customer, err := resolveCustomer(ctx, repos, input.CustomerID, input.Customer)
		if err != nil {
			return err
		}
		deviceID, err := resolveDevice(ctx, repos, customer.ID, input.DeviceID, input.Device)
		if err != nil {
			return err
		}

		var assigneeID *string
		if id := strings.TrimSpace(input.AssigneeID); id != "" {
			if _, err := loadTechnician(ctx, repos, id); err != nil {
				return err
			}
			assigneeID = &id
		}

		code, err := s.codes.Next(ctx, repos.Sequences, repos.Tickets)
		if err != nil {
			return apperrors.MapError(err)
		}

		ticket = &domain.Ticket{
			Code:             code,
			Subject:          strings.TrimSpace(input.Subject),
			InitialComplaint: strings.TrimSpace(input.InitialComplaint),
			Description:      strings.TrimSpace(input.Description),
			CustomerID:       customer.ID,
			DeviceID:         deviceID,
			CreatedBy:        actor.ID,
			AssigneeID:       assigneeID,
			Priority:         input.Priority,
			Status:           domain.TicketStatusOpen,
			Tags:             trimAll(input.Tags),
		}
		if ticket.Priority == "" {
			ticket.Priority = domain.TicketPriorityMedium
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errLostRace
			}
			return apperrors.MapError(err)
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeCreated, nil,
			map[string]any{"status": ticket.Status, "code": ticket.Code}, "")
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Assign hands an open ticket to an active technician.
func (s *TicketService) Assign(ctx context.Context, ticketID, technicianID string, actor domain.Actor) (*domain.Ticket, error) {
	var (
		ticket      *domain.Ticket
		oldAssignee *string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status != domain.TicketStatusOpen {
			return apperrors.NewInvalidState("only open tickets can be assigned",
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}
		technician, err := loadTechnician(ctx, repos, technicianID)
		if err != nil {
			return err
		}

		oldAssignee = ticket.AssigneeID
		ticket.AssigneeID = &technician.ID
		ticket.Status = domain.TicketStatusAssigned
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		if err := s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": oldAssignee},
			map[string]any{"assignee_id": technician.ID}, ""); err != nil {
			return err
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeStatus,
			map[string]any{"status": domain.TicketStatusOpen},
			map[string]any{"status": domain.TicketStatusAssigned}, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket assigned", zap.String("ticket_id", ticket.ID), zap.String("technician_id", technicianID))
	s.events.publish(ctx,
		events.Event{
			Type:        events.EventTicketAssigned,
			AggregateID: ticket.ID,
			Actor:       events.ActorFrom(actor),
			Payload: events.TicketAssignedPayload{
				Code:         ticket.Code,
				OldAssignee:  oldAssignee,
				TechnicianID: *ticket.AssigneeID,
			},
		},
		statusChangedEvent(ticket, domain.TicketStatusOpen, "", actor),
	)
	return ticket, nil
}

// AddDiagnosis appends a diagnosis record. Terminal tickets are frozen.
func (s *TicketService) AddDiagnosis(ctx context.Context, ticketID string, input DiagnosisInput, actor domain.Actor) (*domain.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status.Terminal() {
			return apperrors.NewInvalidState("cannot add a diagnosis to a finished ticket",
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}
		ticket.Diagnostics = append(ticket.Diagnostics, domain.Diagnostic{
			Symptom:   strings.TrimSpace(input.Symptom),
			Diagnosis: strings.TrimSpace(input.Diagnosis),
			By:        actor.ID,
			At:        s.now(),
		})
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeDiagnosis, nil,
			map[string]any{"symptom": strings.TrimSpace(input.Symptom), "diagnosis": strings.TrimSpace(input.Diagnosis)}, "")
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddAction records repair work and consumes the listed parts through the
// stock ledger. Either every part is consumed and the action appended, or
// nothing changes.
func (s *TicketService) AddAction(ctx context.Context, ticketID string, input ActionInput, actor domain.Actor) (*domain.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		ticket  *domain.Ticket
		changes []stockChange
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changes = nil
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		switch ticket.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled:
			return apperrors.NewInvalidState("cannot record actions on a resolved or finished ticket",
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}

		used := make([]domain.PartUsage, 0, len(input.PartsUsed))
		for _, p := range input.PartsUsed {
			change, err := applyMovement(ctx, repos, movementRequest{
				PartID:    p.PartID,
				Type:      domain.MovementOut,
				Quantity:  p.Quantity,
				Reference: ticket.Code,
				Notes:     "consumed by repair action",
				ActorID:   actor.ID,
			})
			if err != nil {
				return err
			}
			changes = append(changes, *change)
			used = append(used, domain.PartUsage{
				PartID:   change.Part.ID,
				PartName: change.Movement.PartNameSnapshot,
				Quantity: p.Quantity,
			})
		}

		ticket.Actions = append(ticket.Actions, domain.RepairAction{
			ActionTaken: strings.TrimSpace(input.ActionTaken),
			PartsUsed:   used,
			By:          actor.ID,
			At:          s.now(),
		})
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeAction, nil,
			map[string]any{"action_taken": strings.TrimSpace(input.ActionTaken), "parts_used": len(used)}, "")
	})
	if err != nil {
		return nil, err
	}

	last := ticket.Actions[len(ticket.Actions)-1]
	s.logger.Info("ticket action recorded",
		zap.String("ticket_id", ticket.ID),
		zap.Int("parts_used", len(last.PartsUsed)))
	evs := []events.Event{{
		Type:        events.EventTicketActionRecorded,
		AggregateID: ticket.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.TicketActionRecordedPayload{
			Code:        ticket.Code,
			ActionTaken: last.ActionTaken,
			PartsUsed:   last.PartsUsed,
		},
	}}
	s.events.publish(ctx, append(evs, stockEvents(actor, changes)...)...)
	return ticket, nil
}

// UpdateStatus moves a ticket along the transition table. Requesting the
// current status is a no-op.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, note string, actor domain.Actor) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": newStatus})
	}
	note = strings.TrimSpace(note)

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		changed   bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		oldStatus = ticket.Status
		if oldStatus == newStatus {
			changed = false
			return nil
		}
		if !CanTransition(oldStatus, newStatus) {
			return apperrors.NewInvalidTransition(string(oldStatus), string(newStatus))
		}
		if newStatus == domain.TicketStatusAssigned && ticket.AssigneeID == nil {
			return apperrors.NewInvalidState("ticket has no technician, use assign",
				map[string]any{"ticket_id": ticket.ID, "status": oldStatus})
		}
		if newStatus == domain.TicketStatusResolved {
			if note == "" {
				return apperrors.NewValidationError("a note describing the solution is required to resolve",
					map[string]any{"note": "required"})
			}
			ticket.Resolution = &domain.Resolution{
				Solution:             note,
				PartsConsumedSummary: summarizeParts(ticket),
				ResolvedBy:           actor.ID,
				ResolvedAt:           s.now(),
			}
		}
		ticket.Status = newStatus
		if newStatus.Terminal() {
			completed := s.now()
			ticket.CompletedAt = &completed
		}
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		changed = true
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeStatus,
			map[string]any{"status": oldStatus},
			map[string]any{"status": newStatus}, note)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ticket, nil
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)))
	evs := []events.Event{statusChangedEvent(ticket, oldStatus, note, actor)}
	if newStatus == domain.TicketStatusResolved {
		evs = append(evs, resolvedEvent(ticket, actor))
	}
	s.events.publish(ctx, evs...)
	return ticket, nil
}

// Resolve records the resolution and moves the ticket to resolved. A second
// call is rejected so the first resolution is never overwritten.
func (s *TicketService) Resolve(ctx context.Context, ticketID string, input ResolveInput, actor domain.Actor) (*domain.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if !resolvableStatuses[ticket.Status] {
			return apperrors.NewInvalidState(fmt.Sprintf("ticket cannot be resolved while %s", ticket.Status),
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}
		oldStatus = ticket.Status

		summary := strings.TrimSpace(input.PartsConsumedSummary)
		if summary == "" {
			summary = summarizeParts(ticket)
		}
		ticket.Resolution = &domain.Resolution{
			RootCause:            strings.TrimSpace(input.RootCause),
			Solution:             strings.TrimSpace(input.Solution),
			PartsConsumedSummary: summary,
			Tags:                 trimAll(input.Tags),
			ResolvedBy:           actor.ID,
			ResolvedAt:           s.now(),
		}
		ticket.Status = domain.TicketStatusResolved
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypeResolved,
			map[string]any{"status": oldStatus},
			map[string]any{
				"status":     domain.TicketStatusResolved,
				"root_cause": ticket.Resolution.RootCause,
				"solution":   ticket.Resolution.Solution,
			}, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket resolved", zap.String("ticket_id", ticket.ID), zap.String("code", ticket.Code))
	s.events.publish(ctx,
		statusChangedEvent(ticket, oldStatus, "", actor),
		resolvedEvent(ticket, actor),
	)
	return ticket, nil
}

// UpdatePriority changes ticket urgency while the ticket is still active.
func (s *TicketService) UpdatePriority(ctx context.Context, ticketID string, priority domain.TicketPriority, actor domain.Actor) (*domain.Ticket, error) {
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": priority})
	}

	var (
		ticket      *domain.Ticket
		oldPriority domain.TicketPriority
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ticket, err = lockTicket(ctx, repos, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status.Terminal() {
			return apperrors.NewInvalidState("cannot change priority of a finished ticket",
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}
		oldPriority = ticket.Priority
		if oldPriority == priority {
			return nil
		}
		ticket.Priority = priority
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return s.recordHistory(ctx, repos, ticket.ID, actor, domain.ChangeTypePriority,
			map[string]any{"priority": oldPriority},
			map[string]any{"priority": priority}, "")
	})
	if err != nil {
		return nil, err
	}
	if oldPriority != priority {
		s.events.publish(ctx, events.Event{
			Type:        events.EventTicketPriorityChanged,
			AggregateID: ticket.ID,
			Actor:       events.ActorFrom(actor),
			Payload: events.TicketPriorityChangedPayload{
				Code:        ticket.Code,
				OldPriority: oldPriority,
				NewPriority: priority,
			},
		})
	}
	return ticket, nil
}

// Get fetches one ticket.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Repositories().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// GetByCode fetches one ticket by its human-readable code.
func (s *TicketService) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ticket, err := s.store.Repositories().Tickets.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"code": code})
	}
	return ticket, nil
}

// List returns a page of tickets, newest first.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter, pagination Pagination) (PageResult[domain.Ticket], error) {
	page := pagination.page()
	tickets, total, err := s.store.Repositories().Tickets.List(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssigneeID:  filter.AssigneeID,
		CustomerID:  filter.CustomerID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Page:        page,
	})
	if err != nil {
		return PageResult[domain.Ticket]{}, apperrors.MapError(err)
	}
	return newPageResult(tickets, total, page), nil
}

// History returns the audit trail of a ticket in insertion order.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	repos := s.store.Repositories()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	history, err := repos.History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if history == nil {
		history = []domain.TicketHistory{}
	}
	return history, nil
}

func (s *TicketService) recordHistory(ctx context.Context, repos repository.Repositories, ticketID string, actor domain.Actor, changeType domain.TicketChangeType, oldValue, newValue map[string]any, note string) error {
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actor.ID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
		Note:       note,
	}
	if err := repos.History.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func lockTicket(ctx context.Context, repos repository.Repositories, ticketID string) (*domain.Ticket, error) {
	ticket, err := repos.Tickets.GetByIDForUpdate(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func loadTechnician(ctx context.Context, repos repository.Repositories, userID string) (*domain.User, error) {
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "technician", map[string]any{"technician_id": userID})
	}
	if user.Role != domain.RoleTechnician || !user.Active {
		return nil, apperrors.NewValidationError("assignee must be an active technician",
			map[string]any{"technician_id": userID, "role": user.Role, "active": user.Active})
	}
	return user, nil
}

func resolveCustomer(ctx context.Context, repos repository.Repositories, customerID string, input *CustomerInput) (*domain.Customer, error) {
	if id := strings.TrimSpace(customerID); id != "" {
		customer, err := repos.Customers.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoError(err, "customer", map[string]any{"customer_id": id})
		}
		return customer, nil
	}

	phone := normalizePhone(input.Phone)
	customer, err := repos.Customers.GetByPhone(ctx, phone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	customer = &domain.Customer{
		Name:    strings.TrimSpace(input.Name),
		Phone:   phone,
		Address: strings.TrimSpace(input.Address),
		Notes:   strings.TrimSpace(input.Notes),
	}
	if err := repos.Customers.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errLostRace
		}
		return nil, mapRepoError(err, "customer", map[string]any{"phone": phone})
	}
	return customer, nil
}

func resolveDevice(ctx context.Context, repos repository.Repositories, customerID, deviceID string, input *DeviceInput) (*string, error) {
	if id := strings.TrimSpace(deviceID); id != "" {
		device, err := repos.Devices.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoError(err, "device", map[string]any{"device_id": id})
		}
		if err := checkDeviceOwner(device, customerID); err != nil {
			return nil, err
		}
		return &device.ID, nil
	}
	if input == nil {
		return nil, nil
	}

	serial := strings.TrimSpace(input.SerialNumber)
	model := strings.TrimSpace(input.Model)
	device, err := repos.Devices.FindBySerialModel(ctx, serial, model)
	if err == nil {
		if err := checkDeviceOwner(device, customerID); err != nil {
			return nil, err
		}
		return &device.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	device = &domain.Device{
		CustomerID:   customerID,
		Brand:        strings.TrimSpace(input.Brand),
		Model:        model,
		SerialNumber: serial,
		Type:         strings.TrimSpace(input.Type),
		Description:  strings.TrimSpace(input.Description),
	}
	if err := repos.Devices.Create(ctx, device); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errLostRace
		}
		return nil, mapRepoError(err, "device", map[string]any{"serial_number": serial, "model": model})
	}
	return &device.ID, nil
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

func summarizeParts(ticket *domain.Ticket) string {
	consumed := ticket.ConsumedParts()
	if len(consumed) == 0 {
		return "no parts used"
	}
	parts := make([]string, len(consumed))
	for i, p := range consumed {
		parts[i] = fmt.Sprintf("%s x%d", p.PartName, p.Quantity)
	}
	return strings.Join(parts, ", ")
}

func statusChangedEvent(ticket *domain.Ticket, oldStatus domain.TicketStatus, note string, actor domain.Actor) events.Event {
	return events.Event{
		Type:        events.EventTicketStatusChanged,
		AggregateID: ticket.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.TicketStatusChangedPayload{
			Code:      ticket.Code,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Note:      note,
		},
	}
}

func resolvedEvent(ticket *domain.Ticket, actor domain.Actor) events.Event {
	return events.Event{
		Type:        events.EventTicketResolved,
		AggregateID: ticket.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.TicketResolvedPayload{
			Code:      ticket.Code,
			RootCause: ticket.Resolution.RootCause,
			Solution:  ticket.Resolution.Solution,
		},
	}
}

// A device stays with the customer who first registered it.
func checkDeviceOwner(device *domain.Device, customerID string) error {
	if device.CustomerID == customerID {
		return nil
	}
	return apperrors.NewValidationError("device belongs to another customer",
		map[string]any{"device_id": device.ID, "customer_id": customerID})
}
