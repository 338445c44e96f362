package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type BillingController struct {
	billing *services.BillingService
}

func NewBillingController(billing *services.BillingService) *BillingController {
	return &BillingController{billing: billing}
}

func invoiceFilter(c *fiber.Ctx) services.InvoiceFilter {
	return services.InvoiceFilter{
		Status: models.InvoiceStatus(c.Query("status")),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
}

func (h *BillingController) Create(c *fiber.Ctx) error {
	clinicID, err := paramID(c, "clinicID")
	if err != nil {
		return err
	}
	var in services.CreateInvoiceInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	inv, err := h.billing.CreateInvoice(c.UserContext(), middleware.CallerFrom(c), clinicID, in)
	if err != nil {
		return respondError(c, "Failed to create invoice", err)
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *BillingController) ListForClinic(c *fiber.Ctx) error {
	clinicID, err := paramID(c, "clinicID")
	if err != nil {
		return err
	}
	f := invoiceFilter(c)
	list, total, err := h.billing.ListForClinic(c.UserContext(), middleware.CallerFrom(c), clinicID, f)
	if err != nil {
		return respondError(c, "Failed to fetch invoices", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *BillingController) ListMine(c *fiber.Ctx) error {
	f := invoiceFilter(c)
	list, total, err := h.billing.ListForOwner(c.UserContext(), middleware.CallerFrom(c), f)
	if err != nil {
		return respondError(c, "Failed to fetch invoices", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *BillingController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.billing.Get(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Invoice not found", err)
	}
	return c.JSON(inv)
}

func (h *BillingController) AddItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.InvoiceItemInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	inv, err := h.billing.AddItem(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add invoice item", err)
	}
	return c.JSON(inv)
}

func (h *BillingController) Send(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.billing.Send(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to send invoice", err)
	}
	return c.JSON(inv)
}

// RecordPayment godoc
// @Summary Record a payment against a sent invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param payment body services.PaymentInput true "Payment"
// @Success 200 {object} models.Invoice
// @Failure 409 {object} utils.ErrorResponse
// @Router /invoices/{id}/payments [post]
func (h *BillingController) RecordPayment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PaymentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	inv, err := h.billing.RecordPayment(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to record payment", err)
	}
	return c.JSON(inv)
}

func (h *BillingController) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inv, err := h.billing.Cancel(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to cancel invoice", err)
	}
	return c.JSON(inv)
}
