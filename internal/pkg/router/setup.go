package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plclassificados/marketplace/app/controllers"
	"github.com/plclassificados/marketplace/app/repository"
	"github.com/plclassificados/marketplace/internal/pkg/billing"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Repos      *repository.Repositories
	Billing    *billing.Service
	Dispatcher controllers.WebhookDispatcher
	Notifier   controllers.AccountNotifier
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter goes first: it installs the session store and the global
	// UserContext middleware that the API auth guards depend on.
	setup(app, NewHttpRouter(), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
