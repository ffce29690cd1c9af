package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lexvia/ConsultAppBack/internal/config"
	"github.com/lexvia/ConsultAppBack/internal/database"
	"github.com/lexvia/ConsultAppBack/internal/routes"
	"github.com/robfig/cron/v3"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	db, err := database.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	reconciler, err := routes.RegisterRoutes(app, cfg, db)
	if err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 4. Schedule reconciliation
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReconcileCron, func() {
		completed, err := reconciler.Run(context.Background())
		if err != nil {
			log.Printf("Reconcile run failed: %v", err)
			return
		}
		if completed > 0 {
			log.Printf("Reconcile completed %d appointments", completed)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule reconciler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 5. Start Server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
