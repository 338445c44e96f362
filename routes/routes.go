package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/meinhoongagan/vetcare-app/controllers"
	"github.com/meinhoongagan/vetcare-app/metrics"
)

// Handlers groups every controller the router mounts.
type Handlers struct {
	Auth         *controllers.AuthController
	Clinics      *controllers.ClinicController
	Pets         *controllers.PetController
	Appointments *controllers.AppointmentController
	Reviews      *controllers.ReviewController
	Billing      *controllers.BillingController
	Admin        *controllers.AdminController
	Health       *controllers.HealthController
}

// Setup mounts all routes; protected is the JWT middleware.
func Setup(app *fiber.App, h Handlers, protected fiber.Handler, m *metrics.Collector) {
	app.Get("/healthz", h.Health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	SetupAuthRoutes(app, h.Auth, protected)
	SetupClinicRoutes(app, h, protected)
	SetupPetRoutes(app, h.Pets, protected)
	SetupAppointmentRoutes(app, h.Appointments, protected)
	SetupReviewRoutes(app, h.Reviews, protected)
	SetupInvoiceRoutes(app, h.Billing, protected)
	SetupAdminRoutes(app, h.Admin, protected)
}
