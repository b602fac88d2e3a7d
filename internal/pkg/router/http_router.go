package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plclassificados/marketplace/internal/pkg/cache"
	"github.com/plclassificados/marketplace/internal/pkg/env"
	"github.com/plclassificados/marketplace/internal/pkg/middleware"
	"github.com/plclassificados/marketplace/internal/pkg/session"
)

// HttpRouter installs the cross-cutting pieces: session, user context and
// the operational endpoints.
type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless a store was injected already
	if session.GetSessionStore() == nil {
		session.NewSessionStore(session.ConfigFromEnv(cache.GetClient()))
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// prometheus scrape endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// fiber monitor
	app.Get("/monitor", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("MONITOR_USER", "admin"): env.GetEnv("MONITOR_PASSWORD", "change-me"),
		},
	}), monitor.New())
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
