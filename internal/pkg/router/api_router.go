package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/plclassificados/marketplace/app/controllers"
	"github.com/plclassificados/marketplace/internal/pkg/env"
	"github.com/plclassificados/marketplace/internal/pkg/middleware"
)

const webhookPath = "/api/subscriptions/webhook"

type ApiRouter struct {
	subscriptions *controllers.SubscriptionController
	plans         *controllers.PlanController
	auth          *controllers.AuthController
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
		// gateway retries must never be throttled
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == webhookPath
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	auth := api.Group("/auth")
	auth.Post("/register", h.auth.HandleRegister)
	auth.Post("/login", h.auth.HandleLogin)
	auth.Post("/logout", h.auth.HandleLogout)
	auth.Get("/me", middleware.RequireAPISessionAuth, h.auth.HandleMe)

	plans := api.Group("/plans")
	plans.Get("/", h.plans.HandleList)
	plans.Get("/:identifier", h.plans.HandleGet)
	plans.Post("/", middleware.RequireAPIAdmin, h.plans.HandleCreate)
	plans.Put("/:id", middleware.RequireAPIAdmin, h.plans.HandleUpdate)
	plans.Delete("/:id", middleware.RequireAPIAdmin, h.plans.HandleDelete)

	subs := api.Group("/subscriptions")
	subs.Post("/webhook", h.subscriptions.HandleWebhook)
	subs.Post("/create", middleware.RequireAPISessionAuth, h.subscriptions.HandleCreate)
	subs.Post("/cancel", middleware.RequireAPISessionAuth, h.subscriptions.HandleCancel)
	subs.Get("/status", middleware.RequireAPISessionAuth, h.subscriptions.HandleStatus)
	subs.Get("/payments", middleware.RequireAPISessionAuth, h.subscriptions.HandlePayments)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{
		subscriptions: controllers.NewSubscriptionController(deps.Billing, deps.Dispatcher),
		plans:         controllers.NewPlanController(deps.Repos),
		auth:          controllers.NewAuthController(deps.Repos, deps.Notifier),
	}
}
