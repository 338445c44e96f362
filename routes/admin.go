package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
)

// SetupAdminRoutes configures moderation routes; every route requires the admin role.
func SetupAdminRoutes(app *fiber.App, h *controllers.AdminController, protected fiber.Handler) {
	admin := app.Group("/admin", protected, middleware.RequireRole(models.RoleAdmin))
	admin.Get("/clinics", h.ListClinics)
	admin.Post("/clinics/:id/approve", h.ApproveClinic)
	admin.Post("/clinics/:id/reject", h.RejectClinic)
	admin.Post("/clinics/:id/suspend", h.SuspendClinic)
	admin.Post("/users/:id/ban", h.BanUser)
	admin.Post("/users/:id/unban", h.UnbanUser)
	admin.Get("/security-events", h.SecurityEvents)
	admin.Get("/job-runs", h.JobRuns)
}
