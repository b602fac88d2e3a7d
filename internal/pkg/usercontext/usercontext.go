package usercontext

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	IsLoggedIn bool      `json:"is_logged_in"`
	IsAdmin    bool      `json:"is_admin"`
}

// Set stores uc on the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(LocalsKey, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(LocalsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or uuid.Nil if not logged in
func GetUserID(c *fiber.Ctx) uuid.UUID {
	return GetUserContext(c).UserID
}
