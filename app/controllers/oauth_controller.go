package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/gitwatch-app/gitwatch/app/repository"
	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
	"github.com/gitwatch-app/gitwatch/internal/pkg/github"
	"github.com/gitwatch-app/gitwatch/internal/pkg/ratelimit"
	"github.com/gitwatch-app/gitwatch/internal/pkg/security"
	"github.com/gitwatch-app/gitwatch/internal/pkg/webhook"
)

const (
	// oauthStateMaxAge bounds how long a signed state parameter stays valid
	oauthStateMaxAge = 10 * time.Minute

	// 3 OAuth attempts per 5 minutes per Telegram user
	oauthMaxAttempts = 3
	oauthWindow      = 5 * time.Minute
)

// oauthWorkflow carries the collaborators of the OAuth flow so tests can
// inject fakes.
type oauthWorkflow struct {
	users   repository.UserRepository
	limiter ratelimit.Limiter
	github  *github.OAuthClient
	sender  webhook.Sender
}

var (
	defaultOAuthOnce     sync.Once
	defaultOAuthWorkflow *oauthWorkflow
)

func getOAuthWorkflow() *oauthWorkflow {
	defaultOAuthOnce.Do(func() {
		defaultOAuthWorkflow = &oauthWorkflow{
			users:   repository.GetGlobalFactory().GetUserRepository(),
			limiter: ratelimit.NewMemoryLimiter(),
			github:  github.NewOAuthClientFromEnv(),
			sender:  newSinkFromEnv(),
		}
	})
	return defaultOAuthWorkflow
}

// HandleGitHubAuthorize starts the OAuth flow for a Telegram user: it
// rate-limits per user, signs a state token carrying the Telegram id and
// redirects to the GitHub authorization page.
func HandleGitHubAuthorize(c *fiber.Ctx) error {
	return getOAuthWorkflow().authorize(c)
}

// HandleGitHubCallback finishes the flow: verifies the state, exchanges
// the code, links the GitHub account to the Telegram user and confirms
// via Telegram.
func HandleGitHubCallback(c *fiber.Ctx) error {
	return getOAuthWorkflow().callback(c)
}

func (w *oauthWorkflow) authorize(c *fiber.Ctx) error {
	telegramIDRaw := c.Query("telegram_id")
	if telegramIDRaw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing telegram_id"})
	}
	telegramID, err := strconv.ParseInt(telegramIDRaw, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid telegram_id"})
	}

	res, err := w.limiter.Check(c.UserContext(), ratelimit.UserKey(telegramID, "oauth"), oauthMaxAttempts, oauthWindow)
	if err != nil {
		// The limiter is an abuse heuristic; when its store is down the
		// flow proceeds rather than locking every user out.
		log.Errorf("[OAuth] rate limit check failed: %v", err)
	} else if !res.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "rate_limited",
			"message": "Too many authentication attempts. Please try again later.",
		})
	}

	secret := stateSigningSecret()
	if secret == "" {
		log.Error("[OAuth] GITHUB_WEBHOOK_SECRET is not set, cannot sign state")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "OAuth is not configured"})
	}

	payload, err := security.NewStatePayload(telegramID)
	if err != nil {
		log.Errorf("[OAuth] state payload generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to start OAuth flow"})
	}
	state, err := security.SignState(payload, secret)
	if err != nil {
		log.Errorf("[OAuth] state signing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to start OAuth flow"})
	}

	authURL, err := w.github.AuthorizeURLWithState(state)
	if err != nil {
		log.Errorf("[OAuth] authorize url: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "OAuth is not configured"})
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

func (w *oauthWorkflow) callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing code or state"})
	}

	secret := stateSigningSecret()
	if secret == "" {
		log.Error("[OAuth] GITHUB_WEBHOOK_SECRET is not set, cannot verify state")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "OAuth is not configured"})
	}

	payload, err := security.VerifyState(state, secret, oauthStateMaxAge)
	if err != nil {
		log.Warnf("[OAuth] state verification failed: %v", err)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Invalid or expired state"})
	}

	ctx := c.UserContext()
	accessToken, err := w.github.ExchangeCode(ctx, code)
	if err != nil {
		log.Errorf("[OAuth] token exchange failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "Failed to get access token"})
	}

	ghUser, err := w.github.FetchAuthenticatedUser(ctx, accessToken)
	if err != nil {
		log.Errorf("[OAuth] user fetch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "Failed to fetch GitHub account"})
	}

	if err := w.users.LinkGitHubAccount(payload.TelegramID, ghUser.Login, accessToken); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown Telegram account"})
		}
		log.Errorf("[OAuth] account link for telegram id %d failed: %v", payload.TelegramID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to link account"})
	}

	// Best effort: the link already succeeded, a lost confirmation is fine
	confirmation := fmt.Sprintf("✅ Successfully connected to GitHub!\n\nAccount: %s\n\nYou can now add repositories to watch using:\n/watch owner/repo", ghUser.Login)
	if err := w.sender.SendMessage(ctx, payload.TelegramID, confirmation, ""); err != nil {
		log.Errorf("[OAuth] confirmation message to %d failed: %v", payload.TelegramID, err)
	}

	return c.Redirect("/auth/success", fiber.StatusFound)
}

func stateSigningSecret() string {
	return env.GetEnv("GITHUB_WEBHOOK_SECRET", "")
}
