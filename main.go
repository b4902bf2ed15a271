package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/gitwatch-app/gitwatch/app/repository"
	"github.com/gitwatch-app/gitwatch/internal/pkg/cache"
	"github.com/gitwatch-app/gitwatch/internal/pkg/database"
	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
	"github.com/gitwatch-app/gitwatch/internal/pkg/metrics/counter"
	"github.com/gitwatch-app/gitwatch/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	flusher := counter.NewFlusher(5 * time.Second)
	flusher.Start()

	engine := html.New("./views", ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
