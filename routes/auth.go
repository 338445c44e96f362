package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(app *fiber.App, h *controllers.AuthController, protected fiber.Handler) {
	auth := app.Group("/auth")

	// Public routes
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)

	// Protected routes
	auth.Get("/me", protected, h.Me)
}
