package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/services"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// Submit godoc
// @Summary Review a completed appointment
// @Description One review per appointment; the clinic rating is recomputed in the same transaction.
// @Tags reviews
// @Accept json
// @Produce json
// @Param review body services.SubmitReviewInput true "Review"
// @Success 201 {object} models.ClinicReview
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /reviews [post]
func (h *ReviewController) Submit(c *fiber.Ctx) error {
	var in services.SubmitReviewInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	review, clinic, err := h.reviews.Submit(c.UserContext(), middleware.CallerFrom(c), in)
	if err != nil {
		return respondError(c, "Failed to submit review", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"review":        review,
		"clinic_rating": clinic.Rating.StringFixed(2),
		"total_reviews": clinic.TotalReviews,
	})
}

// ListForClinic godoc
// @Summary List a clinic's reviews
// @Tags reviews
// @Produce json
// @Param id path int true "Clinic ID"
// @Success 200 {object} listResponse
// @Router /clinics/{id}/reviews [get]
func (h *ReviewController) ListForClinic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	limit, offset := c.QueryInt("limit"), c.QueryInt("offset")
	list, total, err := h.reviews.ListForClinic(c.UserContext(), id, limit, offset)
	if err != nil {
		return respondError(c, "Failed to fetch reviews", err)
	}
	return c.JSON(listResponse{Data: list, Total: total, Limit: limit, Offset: offset})
}

func (h *ReviewController) Stats(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	stats, err := h.reviews.Stats(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Failed to fetch rating stats", err)
	}
	return c.JSON(stats)
}
