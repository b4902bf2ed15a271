package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/gitwatch-app/gitwatch/app/controllers"
	"github.com/gitwatch-app/gitwatch/internal/pkg/constants"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Wide per-IP ceiling only; webhook deliveries arrive in bursts and
	// the strict OAuth budget is enforced per Telegram user inside the
	// OAuth controller.
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
	}))

	api.Post(constants.WebhookRoute, controllers.HandleGitHubWebhook)
	api.Get(constants.OAuthInitiateRoute, controllers.HandleGitHubAuthorize)
	api.Get(constants.OAuthCallbackRoute, controllers.HandleGitHubCallback)
	api.Post(constants.DebugResetPollRoute, controllers.HandleDebugResetPoll)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
