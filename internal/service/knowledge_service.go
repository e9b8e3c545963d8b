package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// KnowledgeService promotes resolved tickets into reusable articles.
type KnowledgeService struct {
	store  repository.Store
	events publisher
	logger *zap.Logger
}

// NewKnowledgeService constructs the service.
func NewKnowledgeService(store repository.Store, dispatcher events.Dispatcher, logger *zap.Logger) *KnowledgeService {
	logger = nopLogger(logger)
	return &KnowledgeService{store: store, events: publisher{dispatcher: dispatcher, logger: logger}, logger: logger}
}

// KnowledgeInput is a manually written article.
type KnowledgeInput struct {
	Title          string   `validate:"required,notblank,max=200"`
	Symptom        string   `validate:"required,notblank,max=5000"`
	Diagnosis      string   `validate:"max=5000"`
	Solution       string   `validate:"required,notblank,max=5000"`
	RelatedPartIDs []string `validate:"max=50"`
	Tags           []string `validate:"max=20,dive,max=50"`
}

// KnowledgeListFilter narrows article listings.
type KnowledgeListFilter struct {
	SearchTerm string
	Published  *bool
	Tag        string
}

// CreateFromTicket derives a draft article from a resolved or closed ticket.
// Each ticket can be promoted once.
func (s *KnowledgeService) CreateFromTicket(ctx context.Context, ticketID string, actor domain.Actor) (*domain.KnowledgeEntry, error) {
	var entry *domain.KnowledgeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		if !ticket.Status.HasResolution() || ticket.Resolution == nil {
			return apperrors.NewInvalidState("only resolved or closed tickets can be promoted",
				map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}

		if _, err := repos.Knowledge.GetBySourceTicket(ctx, ticket.ID); err == nil {
			return knowledgeConflict(ticket.ID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.MapError(err)
		}

		entry = entryFromTicket(ticket, actor)
		if err := repos.Knowledge.Create(ctx, entry); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return knowledgeConflict(ticket.ID)
			}
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("knowledge entry created from ticket",
		zap.String("entry_id", entry.ID),
		zap.String("ticket_id", ticketID))
	s.publishCreated(ctx, entry, actor)
	return entry, nil
}

func knowledgeConflict(ticketID string) error {
	return apperrors.NewConflict("a knowledge entry already exists for this ticket", map[string]any{"ticket_id": ticketID})
}

func entryFromTicket(ticket *domain.Ticket, actor domain.Actor) *domain.KnowledgeEntry {
	symptoms := []string{ticket.InitialComplaint}
	var diagnoses []string
	for _, d := range ticket.Diagnostics {
		symptoms = append(symptoms, d.Symptom)
		diagnoses = append(diagnoses, d.Diagnosis)
	}

	diagnosis := ticket.Resolution.RootCause
	if strings.TrimSpace(diagnosis) == "" {
		diagnosis = strings.Join(trimAll(diagnoses), "; ")
	}

	var related []string
	for _, used := range ticket.ConsumedParts() {
		related = append(related, used.PartID)
	}

	sourceID := ticket.ID
	return &domain.KnowledgeEntry{
		Title:          ticket.Subject,
		Symptom:        strings.Join(trimAll(symptoms), "; "),
		Diagnosis:      diagnosis,
		Solution:       ticket.Resolution.Solution,
		SourceTicketID: &sourceID,
		RelatedPartIDs: related,
		Tags:           append([]string(nil), ticket.Resolution.Tags...),
		IsPublished:    false,
		CreatedBy:      actor.ID,
	}
}

// Create stores a manually written draft.
func (s *KnowledgeService) Create(ctx context.Context, input KnowledgeInput, actor domain.Actor) (*domain.KnowledgeEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	entry := &domain.KnowledgeEntry{
		Title:          strings.TrimSpace(input.Title),
		Symptom:        strings.TrimSpace(input.Symptom),
		Diagnosis:      strings.TrimSpace(input.Diagnosis),
		Solution:       strings.TrimSpace(input.Solution),
		RelatedPartIDs: trimAll(input.RelatedPartIDs),
		Tags:           trimAll(input.Tags),
		CreatedBy:      actor.ID,
	}
	if err := s.store.Repositories().Knowledge.Create(ctx, entry); err != nil {
		return nil, mapRepoError(err, "knowledge entry", nil)
	}
	s.publishCreated(ctx, entry, actor)
	return entry, nil
}

// Publish makes an article visible. Publishing twice is harmless.
func (s *KnowledgeService) Publish(ctx context.Context, entryID string) (*domain.KnowledgeEntry, error) {
	return s.setPublished(ctx, entryID, true)
}

// Unpublish reverts an article to draft. Unpublishing a draft is harmless.
func (s *KnowledgeService) Unpublish(ctx context.Context, entryID string) (*domain.KnowledgeEntry, error) {
	return s.setPublished(ctx, entryID, false)
}

func (s *KnowledgeService) setPublished(ctx context.Context, entryID string, published bool) (*domain.KnowledgeEntry, error) {
	var entry *domain.KnowledgeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		entry, err = repos.Knowledge.GetByID(ctx, entryID)
		if err != nil {
			return mapRepoError(err, "knowledge entry", map[string]any{"entry_id": entryID})
		}
		if entry.IsPublished == published {
			return nil
		}
		entry.IsPublished = published
		return apperrors.MapError(repos.Knowledge.Update(ctx, entry))
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Get fetches one article.
func (s *KnowledgeService) Get(ctx context.Context, entryID string) (*domain.KnowledgeEntry, error) {
	entry, err := s.store.Repositories().Knowledge.GetByID(ctx, entryID)
	if err != nil {
		return nil, mapRepoError(err, "knowledge entry", map[string]any{"entry_id": entryID})
	}
	return entry, nil
}

// List returns a page of articles.
func (s *KnowledgeService) List(ctx context.Context, filter KnowledgeListFilter, pagination Pagination) (PageResult[domain.KnowledgeEntry], error) {
	page := pagination.page()
	entries, total, err := s.store.Repositories().Knowledge.List(ctx, repository.KnowledgeFilter{
		SearchTerm: filter.SearchTerm,
		Published:  filter.Published,
		Tag:        strings.TrimSpace(filter.Tag),
		Page:       page,
	})
	if err != nil {
		return PageResult[domain.KnowledgeEntry]{}, apperrors.MapError(err)
	}
	return newPageResult(entries, total, page), nil
}

func (s *KnowledgeService) publishCreated(ctx context.Context, entry *domain.KnowledgeEntry, actor domain.Actor) {
	s.events.publish(ctx, events.Event{
		Type:        events.EventKnowledgeEntryCreated,
		AggregateID: entry.ID,
		Actor:       events.ActorFrom(actor),
		Payload: events.KnowledgeEntryCreatedPayload{
			Title:          entry.Title,
			SourceTicketID: entry.SourceTicketID,
		},
	})
}
