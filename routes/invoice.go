package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
)

// SetupInvoiceRoutes configures invoice routes; clinic-scoped creation lives under /clinics.
func SetupInvoiceRoutes(app *fiber.App, h *controllers.BillingController, protected fiber.Handler) {
	invoices := app.Group("/invoices", protected)
	invoices.Get("/", h.ListMine)
	invoices.Get("/:id", h.Get)
	invoices.Post("/:id/items", h.AddItem)
	invoices.Post("/:id/send", h.Send)
	invoices.Post("/:id/payments", h.RecordPayment)
	invoices.Post("/:id/cancel", h.Cancel)
}
