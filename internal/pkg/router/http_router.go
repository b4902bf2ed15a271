package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gitwatch-app/gitwatch/app/controllers"
	"github.com/gitwatch-app/gitwatch/internal/pkg/constants"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.PublicRoute, controllers.HandleIndex)
	app.Get(constants.AuthSuccessRoute, controllers.HandleAuthSuccess)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
