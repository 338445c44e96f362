package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/services"
	"github.com/meinhoongagan/vetcare-app/utils"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrAppointmentNotFound),
		errors.Is(err, services.ErrClinicNotFound),
		errors.Is(err, services.ErrStaffNotFound),
		errors.Is(err, services.ErrServiceNotFound),
		errors.Is(err, services.ErrPetNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrSlotConflict),
		errors.Is(err, services.ErrSlotFull),
		errors.Is(err, services.ErrDuplicateReview),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyInvoiced),
		errors.Is(err, services.ErrAlreadyDisputed),
		errors.Is(err, services.ErrFollowUpExists),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidInvoiceState),
		errors.Is(err, services.ErrClinicStatus),
		errors.Is(err, services.ErrStaleAppointment):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrWindowExpired),
		errors.Is(err, services.ErrClinicNotBookable),
		errors.Is(err, services.ErrStaffUnavailable),
		errors.Is(err, services.ErrOutsideHours),
		errors.Is(err, services.ErrScheduledInPast),
		errors.Is(err, services.ErrNoOpenSlot),
		errors.Is(err, services.ErrNotCompleted),
		errors.Is(err, services.ErrNestedFollowUp),
		errors.Is(err, services.ErrNoFollowUp),
		errors.Is(err, services.ErrInvalidPayment),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, utils.ErrUploadsDisabled):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrUserBanned):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	body := utils.ErrorResponse{Message: message, Error: err.Error()}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status == fiber.StatusInternalServerError {
		body.Error = "internal server error"
		c.Locals("error", err)
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
		Message: "Failed to parse request body",
		Error:   err.Error(),
	})
}

// paramID reads a positive numeric path parameter; the error is rendered by ErrorHandler.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// ErrorHandler renders errors that escape a handler, including fiber's own.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(utils.ErrorResponse{Message: fe.Message, Error: http.StatusText(fe.Code)})
	}
	return respondError(c, "Request failed", err)
}

func queryUint(c *fiber.Ctx, key string) *uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

func queryTime(c *fiber.Ctx, key string) *time.Time {
	t, err := time.Parse(time.RFC3339, c.Query(key))
	if err != nil {
		return nil
	}
	return &t
}

type listResponse struct {
	Data   interface{} `json:"data"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
