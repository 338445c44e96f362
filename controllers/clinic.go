package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/services"
)

type ClinicController struct {
	clinics *services.ClinicService
	slots   *services.SlotService
}

func NewClinicController(clinics *services.ClinicService, slots *services.SlotService) *ClinicController {
	return &ClinicController{clinics: clinics, slots: slots}
}

// Register godoc
// @Summary File a clinic registration for review
// @Tags clinics
// @Accept json
// @Produce json
// @Param clinic body services.RegisterClinicInput true "Clinic"
// @Success 201 {object} models.ClinicRegistration
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /clinics [post]
func (h *ClinicController) Register(c *fiber.Ctx) error {
	var in services.RegisterClinicInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	clinic, err := h.clinics.Register(c.UserContext(), middleware.CallerFrom(c), in)
	if err != nil {
		return respondError(c, "Failed to register clinic", err)
	}
	return c.Status(fiber.StatusCreated).JSON(clinic)
}

// Search godoc
// @Summary Search approved clinics
// @Tags clinics
// @Produce json
// @Param city query string false "City"
// @Param name query string false "Name contains"
// @Success 200 {object} listResponse
// @Router /clinics [get]
func (h *ClinicController) Search(c *fiber.Ctx) error {
	f := services.ClinicFilter{
		City:   c.Query("city"),
		Name:   c.Query("name"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	list, total, err := h.clinics.Search(c.UserContext(), f)
	if err != nil {
		return respondError(c, "Failed to search clinics", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// Get serves the public profile; unapproved clinics are visible to their own staff only.
func (h *ClinicController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	clinic, err := h.clinics.Get(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Clinic not found", err)
	}
	return c.JSON(clinic)
}

func (h *ClinicController) SetHours(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in []services.OperatingHourInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	hours, err := h.clinics.SetHours(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to update operating hours", err)
	}
	return c.JSON(hours)
}

// IsOpen answers whether the clinic is open at ?at= (RFC 3339), defaulting to now.
func (h *ClinicController) IsOpen(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		if at, err = time.Parse(time.RFC3339, raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "at must be RFC 3339")
		}
	}
	open, err := h.clinics.IsOpenAt(c.UserContext(), id, at)
	if err != nil {
		return respondError(c, "Clinic not found", err)
	}
	return c.JSON(fiber.Map{"clinic_id": id, "at": at, "open": open})
}

func (h *ClinicController) AddService(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.ServiceInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	svc, err := h.clinics.AddService(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add service", err)
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

func (h *ClinicController) ListServices(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.clinics.ListServices(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Failed to fetch services", err)
	}
	return c.JSON(list)
}

func (h *ClinicController) AddStaff(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.StaffInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	st, err := h.clinics.AddStaff(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to add veterinarian", err)
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

func (h *ClinicController) DeactivateStaff(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	staffID, err := paramID(c, "staffID")
	if err != nil {
		return err
	}
	st, err := h.clinics.DeactivateStaff(c.UserContext(), middleware.CallerFrom(c), id, staffID)
	if err != nil {
		return respondError(c, "Failed to deactivate veterinarian", err)
	}
	return c.JSON(st)
}

func (h *ClinicController) ListStaff(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.clinics.ListStaff(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Failed to fetch veterinarians", err)
	}
	return c.JSON(list)
}

// UploadCertification accepts a multipart "file" field.
func (h *ClinicController) UploadCertification(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return respondError(c, "Failed to read upload", err)
	}
	defer file.Close()

	clinic, err := h.clinics.UploadCertification(c.UserContext(), middleware.CallerFrom(c), id, file)
	if err != nil {
		return respondError(c, "Failed to upload certification", err)
	}
	return c.JSON(clinic)
}

func (h *ClinicController) GenerateSlots(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.GenerateSlotsInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	slots, err := h.slots.Generate(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to generate time slots", err)
	}
	return c.Status(fiber.StatusCreated).JSON(slots)
}

// AvailableSlots lists open slots for ?date=YYYY-MM-DD, optionally for one veterinarian.
func (h *ClinicController) AvailableSlots(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	slots, err := h.slots.Available(c.UserContext(), id, c.Query("date"), queryUint(c, "clinic_staff_id"))
	if err != nil {
		return respondError(c, "Failed to fetch time slots", err)
	}
	return c.JSON(slots)
}
