package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type AppointmentController struct {
	appointments *services.AppointmentService
}

func NewAppointmentController(appointments *services.AppointmentService) *AppointmentController {
	return &AppointmentController{appointments: appointments}
}

func appointmentFilter(c *fiber.Ctx) services.AppointmentFilter {
	f := services.AppointmentFilter{
		PetID:   queryUint(c, "pet_id"),
		StaffID: queryUint(c, "clinic_staff_id"),
		From:    queryTime(c, "from"),
		To:      queryTime(c, "to"),
		Limit:   c.QueryInt("limit"),
		Offset:  c.QueryInt("offset"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, models.AppointmentStatus(strings.TrimSpace(s)))
		}
	}
	return f
}

// Book godoc
// @Summary Book an appointment with a veterinarian
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointment body services.BookAppointmentInput true "Booking"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /appointments [post]
func (h *AppointmentController) Book(c *fiber.Ctx) error {
	var in services.BookAppointmentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	a, err := h.appointments.Book(c.UserContext(), middleware.CallerFrom(c), in)
	if err != nil {
		return respondError(c, "Failed to book appointment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AppointmentController) WalkIn(c *fiber.Ctx) error {
	clinicID, err := paramID(c, "clinicID")
	if err != nil {
		return err
	}
	var in services.WalkInInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	a, err := h.appointments.WalkIn(c.UserContext(), middleware.CallerFrom(c), clinicID, in)
	if err != nil {
		return respondError(c, "Failed to register walk-in", err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// ListMine godoc
// @Summary List the caller's appointments
// @Tags appointments
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} listResponse
// @Router /appointments [get]
func (h *AppointmentController) ListMine(c *fiber.Ctx) error {
	f := appointmentFilter(c)
	list, total, err := h.appointments.ListForOwner(c.UserContext(), middleware.CallerFrom(c), f)
	if err != nil {
		return respondError(c, "Failed to fetch appointments", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *AppointmentController) ListForClinic(c *fiber.Ctx) error {
	clinicID, err := paramID(c, "clinicID")
	if err != nil {
		return err
	}
	f := appointmentFilter(c)
	list, total, err := h.appointments.ListForClinic(c.UserContext(), middleware.CallerFrom(c), clinicID, f)
	if err != nil {
		return respondError(c, "Failed to fetch appointments", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *AppointmentController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.appointments.Get(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Appointment not found", err)
	}
	return c.JSON(a)
}

func (h *AppointmentController) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.appointments.History(c.UserContext(), middleware.CallerFrom(c), id)
	if err != nil {
		return respondError(c, "Failed to fetch history", err)
	}
	return c.JSON(rows)
}

// transition runs a body-less status change.
func (h *AppointmentController) transition(msg string, fn func(*fiber.Ctx, services.Caller, uint) (*models.Appointment, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		a, err := fn(c, middleware.CallerFrom(c), id)
		if err != nil {
			return respondError(c, msg, err)
		}
		return c.JSON(a)
	}
}

// Confirm godoc
// @Summary Owner confirms a scheduled appointment inside the confirmation window
// @Tags appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentController) Confirm() fiber.Handler {
	return h.transition("Failed to confirm appointment", func(c *fiber.Ctx, caller services.Caller, id uint) (*models.Appointment, error) {
		return h.appointments.Confirm(c.UserContext(), caller, id)
	})
}

func (h *AppointmentController) CheckIn() fiber.Handler {
	return h.transition("Failed to check in", func(c *fiber.Ctx, caller services.Caller, id uint) (*models.Appointment, error) {
		return h.appointments.CheckIn(c.UserContext(), caller, id)
	})
}

func (h *AppointmentController) Start() fiber.Handler {
	return h.transition("Failed to start appointment", func(c *fiber.Ctx, caller services.Caller, id uint) (*models.Appointment, error) {
		return h.appointments.Start(c.UserContext(), caller, id)
	})
}

func (h *AppointmentController) NoShow() fiber.Handler {
	return h.transition("Failed to mark no-show", func(c *fiber.Ctx, caller services.Caller, id uint) (*models.Appointment, error) {
		return h.appointments.MarkNoShow(c.UserContext(), caller, id)
	})
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func (h *AppointmentController) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in reasonBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
	}
	a, err := h.appointments.Cancel(c.UserContext(), middleware.CallerFrom(c), id, in.Reason)
	if err != nil {
		return respondError(c, "Failed to cancel appointment", err)
	}
	return c.JSON(a)
}

func (h *AppointmentController) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.CompleteInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
	}
	a, err := h.appointments.Complete(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to complete appointment", err)
	}
	return c.JSON(a)
}

// Dispute godoc
// @Summary Owner disputes a completed appointment inside the dispute window
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /appointments/{id}/dispute [post]
func (h *AppointmentController) Dispute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in reasonBody
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	a, err := h.appointments.Dispute(c.UserContext(), middleware.CallerFrom(c), id, in.Reason)
	if err != nil {
		return respondError(c, "Failed to dispute appointment", err)
	}
	return c.JSON(a)
}

func (h *AppointmentController) Reschedule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.RescheduleInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	a, err := h.appointments.Reschedule(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to reschedule appointment", err)
	}
	return c.JSON(a)
}

func (h *AppointmentController) FollowUp(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.FollowUpInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
	}
	a, err := h.appointments.CreateFollowUp(c.UserContext(), middleware.CallerFrom(c), id, in)
	if err != nil {
		return respondError(c, "Failed to book follow-up", err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AppointmentController) SetPriority(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		Priority models.Priority `json:"priority"`
		Reason   string          `json:"reason"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	a, err := h.appointments.SetPriority(c.UserContext(), middleware.CallerFrom(c), id, in.Priority, in.Reason)
	if err != nil {
		return respondError(c, "Failed to set priority", err)
	}
	return c.JSON(a)
}
