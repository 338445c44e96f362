package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (h *AdminController) ListClinics(c *fiber.Ctx) error {
	f := services.ClinicFilter{
		Status: models.ClinicStatus(c.Query("status")),
		City:   c.Query("city"),
		Name:   c.Query("name"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	list, total, err := h.admin.ListClinics(c.UserContext(), middleware.CallerFrom(c), f)
	if err != nil {
		return respondError(c, "Failed to fetch clinics", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *AdminController) ApproveClinic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	clinic, err := h.admin.ApproveClinic(c.UserContext(), middleware.CallerFrom(c), id, c.IP())
	if err != nil {
		return respondError(c, "Failed to approve clinic", err)
	}
	return c.JSON(clinic)
}

func (h *AdminController) RejectClinic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in reasonBody
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	clinic, err := h.admin.RejectClinic(c.UserContext(), middleware.CallerFrom(c), id, in.Reason, c.IP())
	if err != nil {
		return respondError(c, "Failed to reject clinic", err)
	}
	return c.JSON(clinic)
}

func (h *AdminController) SuspendClinic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in reasonBody
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	clinic, err := h.admin.SuspendClinic(c.UserContext(), middleware.CallerFrom(c), id, in.Reason, c.IP())
	if err != nil {
		return respondError(c, "Failed to suspend clinic", err)
	}
	return c.JSON(clinic)
}

func (h *AdminController) BanUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in reasonBody
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	u, err := h.admin.BanUser(c.UserContext(), middleware.CallerFrom(c), id, in.Reason, c.IP())
	if err != nil {
		return respondError(c, "Failed to ban user", err)
	}
	return c.JSON(u)
}

func (h *AdminController) UnbanUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.admin.UnbanUser(c.UserContext(), middleware.CallerFrom(c), id, c.IP())
	if err != nil {
		return respondError(c, "Failed to unban user", err)
	}
	return c.JSON(u)
}

func (h *AdminController) SecurityEvents(c *fiber.Ctx) error {
	f := services.SecurityEventFilter{
		Type:   models.SecurityEventType(c.Query("type")),
		UserID: queryUint(c, "user_id"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	list, total, err := h.admin.ListSecurityEvents(c.UserContext(), middleware.CallerFrom(c), f)
	if err != nil {
		return respondError(c, "Failed to fetch security events", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *AdminController) JobRuns(c *fiber.Ctx) error {
	list, err := h.admin.ListJobRuns(c.UserContext(), middleware.CallerFrom(c), c.Query("job"), c.QueryInt("limit"))
	if err != nil {
		return respondError(c, "Failed to fetch job runs", err)
	}
	return c.JSON(list)
}
