package controllers

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/gitwatch-app/gitwatch/app/repository"
	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
)

type resetPollRequest struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	TelegramID int64  `json:"telegram_id"`
}

type debugWorkflow struct {
	users   repository.UserRepository
	watches repository.WatchedRepoRepository
}

var (
	defaultDebugOnce     sync.Once
	defaultDebugWorkflow *debugWorkflow
)

func getDebugWorkflow() *debugWorkflow {
	defaultDebugOnce.Do(func() {
		defaultDebugWorkflow = &debugWorkflow{
			users:   repository.GetGlobalFactory().GetUserRepository(),
			watches: repository.GetGlobalFactory().GetWatchedRepoRepository(),
		}
	})
	return defaultDebugWorkflow
}

// HandleDebugResetPoll rewinds a watch's polling cursor one hour back so
// notifications can be re-triggered while testing. Dev environments only.
func HandleDebugResetPoll(c *fiber.Ctx) error {
	return getDebugWorkflow().resetPoll(c)
}

func (w *debugWorkflow) resetPoll(c *fiber.Ctx) error {
	if !env.IsDev() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Debug endpoints are disabled"})
	}

	var req resetPollRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.Owner == "" || req.Repo == "" || req.TelegramID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing parameters"})
	}

	user, err := w.users.GetByTelegramID(req.TelegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		log.Errorf("[Debug] user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "User lookup failed"})
	}

	oneHourAgo := time.Now().Add(-time.Hour)
	updated, err := w.watches.ResetLastPolled(user.ID, req.Owner, req.Repo, oneHourAgo)
	if err != nil {
		log.Errorf("[Debug] reset last polled failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Reset failed"})
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"updated":     updated,
		"last_polled": oneHourAgo,
	})
}
