package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

const ticketResource = "ticket"

// TicketsHandler exposes the repair ticket workflow.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.CreateTicketInput{
		Subject:          req.Subject,
		InitialComplaint: req.InitialComplaint,
		Description:      req.Description,
		CustomerID:       req.CustomerID,
		DeviceID:         req.DeviceID,
		Priority:         req.Priority,
		AssigneeID:       req.AssigneeID,
		Tags:             req.Tags,
	}
	if req.Customer != nil {
		input.Customer = &service.CustomerInput{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
			Notes:   req.Customer.Notes,
		}
	}
	if req.Device != nil {
		input.Device = &service.DeviceInput{
			Brand:        req.Device.Brand,
			Model:        req.Device.Model,
			SerialNumber: req.Device.SerialNumber,
			Type:         req.Device.Type,
			Description:  req.Device.Description,
		}
	}

	ticket, err := h.service.Create(c.UserContext(), input, actor)
	if err != nil {
		return err
	}
	TagResource(c, ticketResource, ticket.ID)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketListFilter{SearchTerm: c.Query("search")}
	for _, s := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(s))
	}
	for _, p := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(p))
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if customer := c.Query("customer_id"); customer != "" {
		filter.CustomerID = &customer
	}
	var err error
	if filter.CreatedFrom, err = parseTime(c, "created_from"); err != nil {
		return err
	}
	if filter.CreatedTo, err = parseTime(c, "created_to"); err != nil {
		return err
	}

	page, err := h.service.List(c.UserContext(), filter, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketSummary(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// GetTicket GET /tickets/:id. Accepts the id or the ticket code.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	lookup := h.service.Get
	if _, err := uuid.Parse(id); err != nil {
		lookup = h.service.GetByCode
	}
	ticket, err := lookup(c.UserContext(), id)
	if err != nil {
		return err
	}
	TagResource(c, ticketResource, ticket.ID)
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.Assign(c.UserContext(), c.Params("id"), req.TechnicianID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddDiagnosis POST /tickets/:id/diagnostics.
func (h *TicketsHandler) AddDiagnosis(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DiagnosisRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.AddDiagnosis(c.UserContext(), c.Params("id"), service.DiagnosisInput{
		Symptom:   req.Symptom,
		Diagnosis: req.Diagnosis,
	}, actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddAction POST /tickets/:id/actions.
func (h *TicketsHandler) AddAction(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.ActionInput{ActionTaken: req.ActionTaken}
	for _, p := range req.PartsUsed {
		input.PartsUsed = append(input.PartsUsed, service.PartUsageInput{PartID: p.PartID, Quantity: p.Quantity})
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.AddAction(c.UserContext(), c.Params("id"), input, actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.Note, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.Resolve(c.UserContext(), c.Params("id"), service.ResolveInput{
		RootCause:            req.RootCause,
		Solution:             req.Solution,
		PartsConsumedSummary: req.PartsConsumedSummary,
		Tags:                 req.Tags,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdatePriority PATCH /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	TagResource(c, ticketResource, c.Params("id"))
	ticket, err := h.service.UpdatePriority(c.UserContext(), c.Params("id"), req.Priority, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	tags := ticket.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.TicketSummary{
		ID:               ticket.ID,
		Code:             ticket.Code,
		Subject:          ticket.Subject,
		InitialComplaint: ticket.InitialComplaint,
		CustomerID:       ticket.CustomerID,
		DeviceID:         ticket.DeviceID,
		AssigneeID:       ticket.AssigneeID,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		Tags:             tags,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	diagnostics := ticket.Diagnostics
	if diagnostics == nil {
		diagnostics = []domain.Diagnostic{}
	}
	actions := ticket.Actions
	if actions == nil {
		actions = []domain.RepairAction{}
	}
	return dto.TicketDetailResponse{
		TicketSummary:      ticketSummary(ticket),
		Description:        ticket.Description,
		CreatedBy:          ticket.CreatedBy,
		Diagnostics:        diagnostics,
		Actions:            actions,
		Resolution:         ticket.Resolution,
		CompletedAt:        ticket.CompletedAt,
		AllowedTransitions: service.AllowedTransitions(ticket.Status),
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
