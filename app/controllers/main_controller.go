package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleIndex renders the landing page
func HandleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title": "GitWatch - GitHub notifications in Telegram",
	})
}

// HandleAuthSuccess renders the post-OAuth confirmation page the callback
// redirects to
func HandleAuthSuccess(c *fiber.Ctx) error {
	return c.Render("auth_success", fiber.Map{
		"Title": "GitHub connected",
	})
}
