package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
)

// SetupAppointmentRoutes configures the appointment lifecycle routes
func SetupAppointmentRoutes(app *fiber.App, h *controllers.AppointmentController, protected fiber.Handler) {
	appointment := app.Group("/appointments", protected)
	appointment.Get("/", h.ListMine)
	appointment.Post("/", h.Book)
	appointment.Get("/:id", h.Get)
	appointment.Get("/:id/history", h.History)
	appointment.Post("/:id/confirm", h.Confirm())
	appointment.Post("/:id/check-in", h.CheckIn())
	appointment.Post("/:id/start", h.Start())
	appointment.Post("/:id/complete", h.Complete)
	appointment.Post("/:id/cancel", h.Cancel)
	appointment.Post("/:id/no-show", h.NoShow())
	appointment.Post("/:id/dispute", h.Dispute)
	appointment.Post("/:id/reschedule", h.Reschedule)
	appointment.Post("/:id/follow-up", h.FollowUp)
	appointment.Patch("/:id/priority", h.SetPriority)
}
