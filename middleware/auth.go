package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
	"github.com/meinhoongagan/vetcare-app/utils"
)

const callerKey = "caller"

// UserLoader reloads the account behind a token.
type UserLoader interface {
	CurrentUser(ctx context.Context, id uint) (*models.User, error)
}

// Protected verifies the bearer token, reloads the user so bans and clinic links apply at once,
// and stores the resulting services.Caller in locals.
func Protected(secret []byte, users UserLoader) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   secret,
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid token claims")
			}
			if typ, _ := claims["typ"].(string); typ != "access" {
				return unauthorized(c, "Refresh tokens cannot be used here")
			}
			userID, err := extractUserID(claims)
			if err != nil {
				return unauthorized(c, "Invalid user ID in token")
			}

			u, err := users.CurrentUser(c.UserContext(), userID)
			if err != nil {
				if errors.Is(err, services.ErrUserBanned) {
					return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
						Message: "Account is banned",
						Error:   err.Error(),
					})
				}
				if errors.Is(err, services.ErrInvalidCredentials) {
					return unauthorized(c, "User no longer exists")
				}
				return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
					Message: "Failed to load user",
					Error:   err.Error(),
				})
			}

			c.Locals(callerKey, services.CallerFor(u))
			return c.Next()
		},
	})
}

// CallerFrom returns the identity stored by Protected. Only use it behind Protected: the zero Caller is the system actor.
func CallerFrom(c *fiber.Ctx) services.Caller {
	caller, _ := c.Locals(callerKey).(services.Caller)
	return caller
}

// extractUserID accepts the numeric forms a JSON decoder may produce.
func extractUserID(claims jwt.MapClaims) (uint, error) {
	switch v := claims["id"].(type) {
	case float64:
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse ID string: %w", err)
		}
		return uint(parsed), nil
	case nil:
		return 0, fmt.Errorf("no ID found in claims")
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", v)
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: msg,
		Error:   "Unauthorized",
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: "Invalid or expired token",
		Error:   err.Error(),
	})
}

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFrom(c)
		for _, r := range roles {
			if caller.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
			Message: "You don't have permission to perform this action",
			Error:   services.ErrForbidden.Error(),
		})
	}
}
