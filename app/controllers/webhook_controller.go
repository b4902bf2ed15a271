package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/gitwatch-app/gitwatch/app/repository"
	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
	"github.com/gitwatch-app/gitwatch/internal/pkg/metrics/counter"
	"github.com/gitwatch-app/gitwatch/internal/pkg/telegram"
	"github.com/gitwatch-app/gitwatch/internal/pkg/webhook"
)

// webhookWorkflow carries the collaborators of one webhook delivery so
// tests can inject fakes for the store and the messaging sink.
type webhookWorkflow struct {
	watches    repository.WatchedRepoRepository
	dispatcher *webhook.Dispatcher
	// counters disabled in tests; the Redis hash is best-effort anyway
	recordCounters bool
}

var (
	defaultWebhookOnce     sync.Once
	defaultWebhookWorkflow *webhookWorkflow
)

func getWebhookWorkflow() *webhookWorkflow {
	defaultWebhookOnce.Do(func() {
		defaultWebhookWorkflow = &webhookWorkflow{
			watches:        repository.GetGlobalFactory().GetWatchedRepoRepository(),
			dispatcher:     webhook.NewDispatcher(telegram.NewClientFromEnv()),
			recordCounters: true,
		}
	})
	return defaultWebhookWorkflow
}

// HandleGitHubWebhook processes one GitHub webhook delivery: it
// authenticates the payload, normalizes it, resolves the watchers of the
// repository and fans the rendered notifications out. Delivery failures
// are logged and counted but never fail the request; GitHub only needs to
// know the payload was accepted.
func HandleGitHubWebhook(c *fiber.Ctx) error {
	return getWebhookWorkflow().run(c)
}

func (w *webhookWorkflow) run(c *fiber.Ctx) error {
	secret := env.GetEnv("GITHUB_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Error("[Webhook] GITHUB_WEBHOOK_SECRET is not set")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Webhook secret not configured"})
	}

	signature := c.Get("X-Hub-Signature-256")
	if signature == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "No signature provided"})
	}

	body := c.Body()
	if !webhook.VerifySignature(body, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid signature"})
	}

	eventType := c.Get("X-GitHub-Event")
	deliveryID := c.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	event, err := webhook.Normalize(eventType, body)
	if err != nil {
		log.Warnf("[Webhook] delivery %s: %v", deliveryID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid payload"})
	}
	if event == nil {
		// Ping-like delivery, nothing to relay
		return respondOK(c)
	}

	ref := event.Repository()
	watches, err := w.watches.FindActiveByRepo(ref.Owner, ref.Repo)
	if err != nil {
		log.Errorf("[Webhook] delivery %s: subscription lookup for %s failed: %v", deliveryID, ref.FullName(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Subscription lookup failed"})
	}
	if len(watches) == 0 {
		return respondOK(c)
	}

	deliveries := make([]webhook.Delivery, 0, len(watches))
	for i := range watches {
		msg := webhook.Render(event, &watches[i])
		if msg == nil {
			continue
		}
		deliveries = append(deliveries, webhook.Delivery{
			ChatID:        watches[i].User.TelegramID,
			WatchedRepoID: watches[i].ID,
			Message:       *msg,
		})
	}
	if len(deliveries) == 0 {
		return respondOK(c)
	}

	report := w.dispatcher.Dispatch(c.UserContext(), deliveries)
	if w.recordCounters {
		w.recordReport(deliveries, report)
	}

	log.Infof("[Webhook] delivery %s: %s %s, %d/%d notifications delivered",
		deliveryID, eventType, ref.FullName(), report.Delivered, report.Attempted)
	return respondOK(c)
}

func (w *webhookWorkflow) recordReport(deliveries []webhook.Delivery, report webhook.Report) {
	failed := make(map[uint]bool, len(report.Failures))
	for _, f := range report.Failures {
		failed[f.WatchedRepoID] = true
	}
	for _, dv := range deliveries {
		if failed[dv.WatchedRepoID] {
			_ = counter.AddNotificationFailed(dv.WatchedRepoID)
			continue
		}
		_ = counter.AddNotificationSent(dv.WatchedRepoID)
	}
}

func respondOK(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// newSinkFromEnv is the production messaging sink
func newSinkFromEnv() webhook.Sender {
	return telegram.NewClientFromEnv()
}
