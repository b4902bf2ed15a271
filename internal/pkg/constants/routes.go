package constants

// Static route constants
const (
	PublicRoute      = "/"
	AuthSuccessRoute = "/auth/success"

	WebhookRoute        = "/webhooks/github"
	OAuthInitiateRoute  = "/auth/github"
	OAuthCallbackRoute  = "/auth/github/callback"
	DebugResetPollRoute = "/debug/reset-poll"
)
