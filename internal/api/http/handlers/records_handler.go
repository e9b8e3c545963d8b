package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

// CustomersHandler exposes read access to customers and their devices.
type CustomersHandler struct {
	service *service.CustomerService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customerService *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{service: customerService}
}

// List GET /customers.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), c.Query("search"), parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.CustomerResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, customerResponse(&page.Items[i], nil))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}

// Get GET /customers/:id includes registered devices.
func (h *CustomersHandler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	devices := make([]dto.DeviceResponse, 0, len(detail.Devices))
	for _, d := range detail.Devices {
		devices = append(devices, dto.DeviceResponse{
			ID:           d.ID,
			Brand:        d.Brand,
			Model:        d.Model,
			SerialNumber: d.SerialNumber,
			Type:         d.Type,
			Description:  d.Description,
		})
	}
	return c.JSON(fiber.Map{"data": customerResponse(detail.Customer, devices)})
}

func customerResponse(customer *domain.Customer, devices []dto.DeviceResponse) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:        customer.ID,
		Name:      customer.Name,
		Phone:     customer.Phone,
		Address:   customer.Address,
		Notes:     customer.Notes,
		Devices:   devices,
		CreatedAt: customer.CreatedAt,
	}
}

// ReportsHandler exposes aggregated shop reports.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// TicketSummary GET /reports/tickets.
func (h *ReportsHandler) TicketSummary(c *fiber.Ctx) error {
	summary, err := h.service.TicketSummary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// PartUsage GET /reports/part-usage?from=&to=.
func (h *ReportsHandler) PartUsage(c *fiber.Ctx) error {
	from, err := parseTime(c, "from")
	if err != nil {
		return err
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return err
	}
	usage, err := h.service.PartUsage(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": usage})
}

// CommonIssues GET /reports/common-issues.
func (h *ReportsHandler) CommonIssues(c *fiber.Ctx) error {
	issues, err := h.service.CommonIssues(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issues})
}

// AuditHandler exposes the request audit trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// List GET /audit-logs.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), service.AuditListFilter{
		ActorID:      c.Query("actor_id"),
		Method:       c.Query("method"),
		Status:       parseInt(c.Query("status"), 0),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	}, parsePagination(c))
	if err != nil {
		return err
	}
	items := make([]dto.AuditLogResponse, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, dto.AuditLogResponse{
			ID:           entry.ID,
			RequestID:    entry.RequestID,
			Method:       entry.Method,
			Path:         entry.Path,
			RouteKey:     entry.RouteKey,
			Status:       entry.Status,
			DurationMs:   entry.DurationMs,
			ActorID:      entry.ActorID,
			IP:           entry.IP,
			UserAgent:    entry.UserAgent,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page)})
}
