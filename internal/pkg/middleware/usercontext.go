package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/plclassificados/marketplace/internal/pkg/session"
	"github.com/plclassificados/marketplace/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
func UserContextMiddleware(c *fiber.Ctx) error {
	anonymous := usercontext.UserContext{IsLoggedIn: false, IsAdmin: false}

	sess, err := session.Load(c)
	if err != nil {
		usercontext.Set(c, anonymous)
		return c.Next()
	}

	rawID, _ := sess.Get(usercontext.KeyUserID).(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		// Anonymous user - no session data or stale format
		usercontext.Set(c, anonymous)
		return c.Next()
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	usercontext.Set(c, usercontext.UserContext{
		UserID:     userID,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})

	return c.Next()
}
