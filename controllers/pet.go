package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/services"
)

type PetController struct {
	pets *services.PetService
}

func NewPetController(pets *services.PetService) *PetController {
	return &PetController{pets: pets}
}

func (h *PetController) Create(c *fiber.Ctx) error {
	var in services.PetInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	p, err := h.pets.Create(c.UserContext(), middleware.CallerFrom(c), in)
	if err != nil {
		return respondError(c, "Failed to add pet", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PetController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PetInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	p, err := h.pets.Update(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to update pet", err)
	}
	return c.JSON(p)
}

func (h *PetController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.pets.Get(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Pet not found", err)
	}
	return c.JSON(p)
}

func (h *PetController) ListMine(c *fiber.Ctx) error {
	list, err := h.pets.ListMine(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, "Failed to fetch pets", err)
	}
	return c.JSON(list)
}

func (h *PetController) ListTypes(c *fiber.Ctx) error {
	list, err := h.pets.ListTypes(c.UserContext())
	if err != nil {
		return respondError(c, "Failed to fetch pet types", err)
	}
	return c.JSON(list)
}

func (h *PetController) ListBreeds(c *fiber.Ctx) error {
	id, err := paramID(c, "typeID")
	if err != nil {
		return err
	}
	list, err := h.pets.ListBreeds(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Failed to fetch breeds", err)
	}
	return c.JSON(list)
}

func (h *PetController) AddMedicalRecord(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.MedicalRecordInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	rec, err := h.pets.AddMedicalRecord(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add medical record", err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (h *PetController) ListMedicalRecords(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.pets.ListMedicalRecords(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to fetch medical records", err)
	}
	return c.JSON(list)
}

func (h *PetController) AddVaccination(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.VaccinationInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	v, err := h.pets.AddVaccination(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add vaccination", err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

func (h *PetController) ListVaccinations(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.pets.ListVaccinations(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to fetch vaccinations", err)
	}
	return c.JSON(list)
}

func (h *PetController) AddHealthCondition(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.HealthConditionInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	hc, err := h.pets.AddHealthCondition(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add health condition", err)
	}
	return c.Status(fiber.StatusCreated).JSON(hc)
}

func (h *PetController) ResolveHealthCondition(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	conditionID, err := paramID(c, "conditionID")
	if err != nil {
		return err
	}
	hc, err := h.pets.ResolveHealthCondition(c.UserContext(), middleware.CallerFrom(c), id, conditionID)
	if err != nil {
		return respondError(c, "Failed to resolve health condition", err)
	}
	return c.JSON(hc)
}

func (h *PetController) ListHealthConditions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.pets.ListHealthConditions(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to fetch health conditions", err)
	}
	return c.JSON(list)
}
