package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
)

func SetupReviewRoutes(app *fiber.App, h *controllers.ReviewController, protected fiber.Handler) {
	app.Post("/reviews", protected, middleware.RequireRole(models.RoleOwner), h.Submit)
}
