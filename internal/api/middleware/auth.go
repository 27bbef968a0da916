package middleware

import (
	"strings"

	"backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserIDKey is the fiber.Ctx locals key for the authenticated user id
	UserIDKey = "userID"
	// RoleKey is the fiber.Ctx locals key for the authenticated role
	RoleKey = "role"
)

// Auth verifies the Bearer token on every request and stashes the caller's
// identity in the request locals. Tokens are minted by the external
// identity service; this backend only verifies the shared-secret signature.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:   "authentication_required",
				Message: "missing Authorization header",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:   "authentication_required",
				Message: "malformed Authorization header",
			})
		}

		token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:   "authentication_required",
				Message: "invalid token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:   "authentication_required",
				Message: "invalid token claims",
			})
		}

		userID, ok := claims["user_id"].(float64)
		if !ok || userID < 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:   "authentication_required",
				Message: "token carries no user id",
			})
		}

		c.Locals(UserIDKey, uint(userID))
		if role, ok := claims["role"].(string); ok {
			c.Locals(RoleKey, role)
		}

		return c.Next()
	}
}

// RequireAdmin gates admin and scheduler-only routes
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(RoleKey).(string)
		if role != "admin" && role != "scheduler" {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
				Error:   "forbidden",
				Message: "admin access required",
			})
		}
		return c.Next()
	}
}

// UserID extracts the authenticated user id from the request locals
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(UserIDKey).(uint)
	return id
}
