package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

const (
	partResource     = "part"
	movementResource = "stock_movement"
)

// InventoryHandler exposes the parts catalogue and the stock ledger.
type InventoryHandler struct {
	service *service.InventoryService
}

// NewInventoryHandler constructs handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: inventoryService}
}

// CreatePart POST /parts.
func (h *InventoryHandler) CreatePart(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreatePartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	part, err := h.service.CreatePart(c.UserContext(), service.CreatePartInput{
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Vendor:       req.Vendor,
		Unit:         req.Unit,
		InitialStock: req.InitialStock,
		MinStock:     req.MinStock,
		Location:     req.Location,
		Price:        req.Price,
		Status:       req.Status,
	}, actor)
	if err != nil {
		return err
	}
	TagResource(c, partResource, part.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": partResponse(part)})
}

// ListParts GET /parts.
func (h *InventoryHandler) ListParts(c *fiber.Ctx) error {
	lowStock := parseBool(c, "low_stock")
	page, err := h.service.ListParts(c.UserContext(), service.PartListFilter{
		Category:     domain.PartCategory(c.Query("category")),
		Status:       domain.PartStatus(c.Query("status")),
		SearchTerm:   c.Query("search"),
		LowStockOnly: lowStock != nil && *lowStock,
	}, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.PartResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, partResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// GetPart GET /parts/:id.
func (h *InventoryHandler) GetPart(c *fiber.Ctx) error {
	part, err := h.service.GetPart(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": partResponse(part)})
}

// UpdatePart PATCH /parts/:id.
func (h *InventoryHandler) UpdatePart(c *fiber.Ctx) error {
	var req dto.UpdatePartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, partResource, c.Params("id"))
	part, err := h.service.UpdatePart(c.UserContext(), c.Params("id"), service.UpdatePartInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Category: req.Category,
		Vendor:   req.Vendor,
		Unit:     req.Unit,
		MinStock: req.MinStock,
		Location: req.Location,
		Price:    req.Price,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": partResponse(part)})
}

// Reconcile GET /parts/:id/reconcile compares cached stock with the ledger.
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	result, err := h.service.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// RecordMovement POST /stock-movements.
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.RecordMovementRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	movement, err := h.service.RecordMovement(c.UserContext(), service.RecordMovementInput{
		PartID:    req.PartID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reference: req.Reference,
		Notes:     req.Notes,
	}, actor)
	if err != nil {
		return err
	}
	TagResource(c, movementResource, movement.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": movementResponse(movement)})
}

// ListMovements GET /stock-movements.
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	query, err := movementQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.QueryMovements(c.UserContext(), query, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.MovementResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, movementResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// ExportMovements GET /stock-movements/export returns an xlsx workbook.
func (h *InventoryHandler) ExportMovements(c *fiber.Ctx) error {
	query, err := movementQuery(c)
	if err != nil {
		return err
	}
	content, filename, err := h.service.ExportMovements(c.UserContext(), query)
	if err != nil {
		return err
	}
	TagResource(c, movementResource, "")
	c.Set(fiber.HeaderContentType, service.XLSXContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(content)
}

func movementQuery(c *fiber.Ctx) (service.MovementQuery, error) {
	query := service.MovementQuery{
		PartID:     c.Query("part_id"),
		ActorID:    c.Query("actor_id"),
		Type:       domain.MovementType(c.Query("type")),
		Reference:  c.Query("reference"),
		SearchTerm: c.Query("search"),
	}
	var err error
	if query.From, err = parseTime(c, "from"); err != nil {
		return query, err
	}
	if query.To, err = parseTime(c, "to"); err != nil {
		return query, err
	}
	return query, nil
}

func partResponse(part *domain.Part) dto.PartResponse {
	return dto.PartResponse{
		ID:        part.ID,
		Name:      part.Name,
		SKU:       part.SKU,
		Category:  part.Category,
		Vendor:    part.Vendor,
		Unit:      part.Unit,
		Stock:     part.Stock,
		MinStock:  part.MinStock,
		LowStock:  part.BelowMinimum(),
		Location:  part.Location,
		Price:     part.Price,
		Status:    part.Status,
		CreatedAt: part.CreatedAt,
		UpdatedAt: part.UpdatedAt,
	}
}

func movementResponse(m *domain.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:        m.ID,
		PartID:    m.PartID,
		PartName:  m.PartNameSnapshot,
		Type:      m.Type,
		Quantity:  m.Quantity,
		Reference: m.Reference,
		Notes:     m.Notes,
		ActorID:   m.ActorID,
		At:        m.At,
	}
}
