package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
)

// SetupClinicRoutes configures clinic profile, catalogue, slot, review and clinic-scoped
// appointment and invoice routes.
func SetupClinicRoutes(app *fiber.App, h Handlers, protected fiber.Handler) {
	clinics := app.Group("/clinics")

	// Public routes
	clinics.Get("/", h.Clinics.Search)
	clinics.Get("/:id", h.Clinics.Get)
	clinics.Get("/:id/open", h.Clinics.IsOpen)
	clinics.Get("/:id/services", h.Clinics.ListServices)
	clinics.Get("/:id/staff", h.Clinics.ListStaff)
	clinics.Get("/:id/slots", h.Clinics.AvailableSlots)
	clinics.Get("/:id/reviews", h.Reviews.ListForClinic)
	clinics.Get("/:id/reviews/stats", h.Reviews.Stats)

	staff := middleware.RequireRole(models.RoleClinicAdmin, models.RoleAdmin)

	clinics.Post("/", protected, middleware.RequireRole(models.RoleClinicAdmin), h.Clinics.Register)
	clinics.Put("/:id/hours", protected, staff, h.Clinics.SetHours)
	clinics.Post("/:id/services", protected, staff, h.Clinics.AddService)
	clinics.Post("/:id/staff", protected, staff, h.Clinics.AddStaff)
	clinics.Delete("/:id/staff/:staffID", protected, staff, h.Clinics.DeactivateStaff)
	clinics.Post("/:id/certification", protected, staff, h.Clinics.UploadCertification)
	clinics.Post("/:id/slots", protected, staff, h.Clinics.GenerateSlots)

	clinics.Get("/:clinicID/appointments", protected, staff, h.Appointments.ListForClinic)
	clinics.Post("/:clinicID/walk-ins", protected, staff, h.Appointments.WalkIn)
	clinics.Get("/:clinicID/invoices", protected, staff, h.Billing.ListForClinic)
	clinics.Post("/:clinicID/invoices", protected, staff, h.Billing.Create)
}
