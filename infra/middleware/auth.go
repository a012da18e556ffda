package middleware

import (
	"strings"

	"smartmail_server/core/domain"
	"smartmail_server/core/service/auth"
	"smartmail_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SessionAuth validates the bearer session token and stores the decoded
// session in Locals for the handlers.
func SessionAuth(issuer *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		var tokenString string

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// EventSource cannot set headers; allow the token as a query param.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return apperr.Unauthorized("missing authorization")
		}

		session, err := issuer.Parse(tokenString)
		if err != nil {
			return err
		}

		c.Locals("session", *session)
		c.Locals("user_email", session.Email)

		return c.Next()
	}
}

// SessionFromLocals retrieves the session stored by SessionAuth.
func SessionFromLocals(c *fiber.Ctx) (domain.Session, bool) {
	session, ok := c.Locals("session").(domain.Session)
	return session, ok
}
