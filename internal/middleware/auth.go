// Package middleware provides logging, authentication and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strings"

	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves an access token to the user it was issued to.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, raw string) (uint, error)
}

// bearerToken extracts the token from "Bearer <token>". On failure the
// second value is the message to show the client.
func bearerToken(c *fiber.Ctx) (string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header required"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	observability.SetLogUserID(c.UserContext(), userID)
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, problem := bearerToken(c)
		if problem != "" {
			return models.Respond(c, models.NewUnauthorizedError(problem))
		}

		userID, err := v.VerifyAccessToken(c.UserContext(), raw)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, auth.ErrTokenRevoked) {
				msg = "Token has been revoked"
			}
			return models.Respond(c, models.NewUnauthorizedError(msg))
		}

		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, problem := bearerToken(c)
		if problem != "" {
			return c.Next()
		}
		if userID, err := v.VerifyAccessToken(c.UserContext(), raw); err == nil {
			setUser(c, userID)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user set by AuthRequired or OptionalAuth.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// BearerToken returns the raw bearer token of the request, if any.
func BearerToken(c *fiber.Ctx) (string, bool) {
	raw, problem := bearerToken(c)
	return raw, problem == ""
}
