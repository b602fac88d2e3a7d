package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plclassificados/marketplace/internal/pkg/usercontext"
)

const (
	msgLoginRequired = "Autenticação necessária"
	msgAdminRequired = "Acesso restrito a administradores"
)

func deny(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

// RequireAPISessionAuth answers 401 unless the session carries a user.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return deny(c, fiber.StatusUnauthorized, msgLoginRequired)
	}
	return c.Next()
}

// RequireAPIAdmin answers 401 for anonymous and 403 for non-admin sessions.
func RequireAPIAdmin(c *fiber.Ctx) error {
	switch uc := usercontext.GetUserContext(c); {
	case !uc.IsLoggedIn:
		return deny(c, fiber.StatusUnauthorized, msgLoginRequired)
	case !uc.IsAdmin:
		return deny(c, fiber.StatusForbidden, msgAdminRequired)
	}
	return c.Next()
}
