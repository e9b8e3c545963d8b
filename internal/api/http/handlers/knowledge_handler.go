package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

const knowledgeResource = "knowledge_entry"

// KnowledgeHandler exposes the knowledge base.
type KnowledgeHandler struct {
	service *service.KnowledgeService
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(knowledgeService *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{service: knowledgeService}
}

// Create POST /knowledge.
func (h *KnowledgeHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.KnowledgeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.Create(c.UserContext(), service.KnowledgeInput{
		Title:          req.Title,
		Symptom:        req.Symptom,
		Diagnosis:      req.Diagnosis,
		Solution:       req.Solution,
		RelatedPartIDs: req.RelatedPartIDs,
		Tags:           req.Tags,
	}, actor)
	if err != nil {
		return err
	}
	TagResource(c, knowledgeResource, entry.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": knowledgeResponse(entry)})
}

// CreateFromTicket POST /knowledge/from-ticket.
func (h *KnowledgeHandler) CreateFromTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.KnowledgeFromTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.CreateFromTicket(c.UserContext(), req.TicketID, actor)
	if err != nil {
		return err
	}
	TagResource(c, knowledgeResource, entry.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": knowledgeResponse(entry)})
}

// List GET /knowledge.
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), service.KnowledgeListFilter{
		SearchTerm: c.Query("search"),
		Published:  parseBool(c, "published"),
		Tag:        c.Query("tag"),
	}, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.KnowledgeResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, knowledgeResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// Get GET /knowledge/:id.
func (h *KnowledgeHandler) Get(c *fiber.Ctx) error {
	entry, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": knowledgeResponse(entry)})
}

// Publish POST /knowledge/:id/publish.
func (h *KnowledgeHandler) Publish(c *fiber.Ctx) error {
	TagResource(c, knowledgeResource, c.Params("id"))
	entry, err := h.service.Publish(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": knowledgeResponse(entry)})
}

// Unpublish POST /knowledge/:id/unpublish.
func (h *KnowledgeHandler) Unpublish(c *fiber.Ctx) error {
	TagResource(c, knowledgeResource, c.Params("id"))
	entry, err := h.service.Unpublish(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": knowledgeResponse(entry)})
}

func knowledgeResponse(entry *domain.KnowledgeEntry) dto.KnowledgeResponse {
	related := entry.RelatedPartIDs
	if related == nil {
		related = []string{}
	}
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.KnowledgeResponse{
		ID:             entry.ID,
		Title:          entry.Title,
		Symptom:        entry.Symptom,
		Diagnosis:      entry.Diagnosis,
		Solution:       entry.Solution,
		SourceTicketID: entry.SourceTicketID,
		RelatedPartIDs: related,
		Tags:           tags,
		IsPublished:    entry.IsPublished,
		CreatedBy:      entry.CreatedBy,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}
