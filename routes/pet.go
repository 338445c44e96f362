package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/controllers"
)

// SetupPetRoutes configures pet profiles and their health records.
func SetupPetRoutes(app *fiber.App, h *controllers.PetController, protected fiber.Handler) {
	app.Get("/pet-types", h.ListTypes)
	app.Get("/pet-types/:typeID/breeds", h.ListBreeds)

	pets := app.Group("/pets", protected)
	pets.Get("/", h.ListMine)
	pets.Post("/", h.Create)
	pets.Get("/:id", h.Get)
	pets.Put("/:id", h.Update)
	pets.Get("/:id/medical-records", h.ListMedicalRecords)
	pets.Post("/:id/medical-records", h.AddMedicalRecord)
	pets.Get("/:id/vaccinations", h.ListVaccinations)
	pets.Post("/:id/vaccinations", h.AddVaccination)
	pets.Get("/:id/health-conditions", h.ListHealthConditions)
	pets.Post("/:id/health-conditions", h.AddHealthCondition)
	pets.Post("/:id/health-conditions/:conditionID/resolve", h.ResolveHealthCondition)
}
