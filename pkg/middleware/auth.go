package middleware

import (
	"strings"

	"watchlist/pkg/models"
	"watchlist/pkg/services"

	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// RequireAuth resolves the bearer token to the caller, or fails with 401.
func RequireAuth(svc services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return &services.Error{Kind: services.KindUnauthorized, Message: "Not authenticated"}
		}

		caller, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// Caller returns the identity stored by RequireAuth.
func Caller(c *fiber.Ctx) models.AuthUser {
	caller, _ := c.Locals(callerKey).(models.AuthUser)
	return caller
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
