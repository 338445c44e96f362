package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/services"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register godoc
// @Summary Register an owner or clinic admin
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "Account"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (h *AuthController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	u, err := h.auth.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, "Failed to register", err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// Login godoc
// @Summary Exchange credentials for an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginInput true "Credentials"
// @Success 200 {object} services.TokenPair
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (h *AuthController) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	pair, err := h.auth.Login(c.UserContext(), in, c.IP())
	if err != nil {
		return respondError(c, "Login failed", err)
	}
	return c.JSON(pair)
}

func (h *AuthController) Refresh(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	pair, err := h.auth.Refresh(c.UserContext(), in.RefreshToken)
	if err != nil {
		return respondError(c, "Invalid refresh token", err)
	}
	return c.JSON(pair)
}

func (h *AuthController) Me(c *fiber.Ctx) error {
	u, err := h.auth.CurrentUser(c.UserContext(), middleware.CallerFrom(c).UserID)
	if err != nil {
		return respondError(c, "Failed to load profile", err)
	}
	return c.JSON(u)
}
