package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

const rmaResource = "rma"

// RmaHandler exposes vendor return tracking.
type RmaHandler struct {
	service *service.RmaService
}

// NewRmaHandler constructs handler.
func NewRmaHandler(rmaService *service.RmaService) *RmaHandler {
	return &RmaHandler{service: rmaService}
}

// Create POST /rma.
func (h *RmaHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateRmaRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rma, err := h.service.Create(c.UserContext(), service.CreateRmaInput{
		Title:        req.Title,
		CustomerName: req.CustomerName,
		ProductName:  req.ProductName,
		ProductSKU:   req.ProductSKU,
		Serial:       req.Serial,
		TicketID:     req.TicketID,
	}, actor)
	if err != nil {
		return err
	}
	TagResource(c, rmaResource, rma.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": rmaResponse(rma)})
}

// AddAction POST /rma/:id/actions.
func (h *RmaHandler) AddAction(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RmaActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, rmaResource, c.Params("id"))
	rma, err := h.service.AddAction(c.UserContext(), c.Params("id"), service.RmaActionInput{
		Type: req.Type,
		Note: req.Note,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rmaResponse(rma)})
}

// List GET /rma.
func (h *RmaHandler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), service.RmaListFilter{
		Status:     domain.RmaStatus(c.Query("status")),
		SearchTerm: c.Query("search"),
	}, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.RmaResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, rmaResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// Get GET /rma/:id.
func (h *RmaHandler) Get(c *fiber.Ctx) error {
	rma, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rmaResponse(rma)})
}

func rmaResponse(rma *domain.RmaRecord) dto.RmaResponse {
	actions := rma.Actions
	if actions == nil {
		actions = []domain.RmaAction{}
	}
	return dto.RmaResponse{
		ID:           rma.ID,
		Code:         rma.Code,
		Title:        rma.Title,
		CustomerName: rma.CustomerName,
		ProductName:  rma.ProductName,
		ProductSKU:   rma.ProductSKU,
		Serial:       rma.Serial,
		TicketID:     rma.TicketID,
		Status:       rma.Status,
		Actions:      actions,
		CreatedBy:    rma.CreatedBy,
		CreatedAt:    rma.CreatedAt,
		UpdatedAt:    rma.UpdatedAt,
	}
}
