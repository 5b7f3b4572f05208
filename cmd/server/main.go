package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"viberehab/internal/config"
	"viberehab/internal/database"
	"viberehab/internal/handlers"
	"viberehab/internal/jobs"
	"viberehab/internal/logging"
	"viberehab/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting VibeRehab Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Model endpoint: %s)", cfg.Port, cfg.ModelEndpoint)

	// Artifact index: deterministic id -> path lookup for text artifacts
	index, err := database.NewArtifactIndex(cfg.IndexPath)
	if err != nil {
		log.Fatalf("❌ Failed to open artifact index: %v", err)
	}
	defer index.Close()

	// Initialize stores
	audioStore, err := services.NewAudioStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("❌ Failed to initialize audio store: %v", err)
	}
	textStore, err := services.NewTextStore(cfg.TextDir, index)
	if err != nil {
		log.Fatalf("❌ Failed to initialize text store: %v", err)
	}

	// Rebuild the index from what is on disk
	if err := index.Rebuild(textStore.Partitions()); err != nil {
		log.Printf("⚠️  Artifact index rebuild failed: %v", err)
	}

	// Generation gateway
	modelService := services.NewModelService(cfg.ModelEndpoint, cfg.ModelAPIKey)
	if cfg.FallbackStoriesFile != "" {
		stories, err := config.LoadFallbackStories(cfg.FallbackStoriesFile)
		if err != nil {
			log.Printf("⚠️  Failed to load fallback stories, using built-in pool: %v", err)
		} else {
			modelService.SetFallbackStories(stories)
			log.Printf("✅ Loaded %d fallback stories from %s", len(stories), cfg.FallbackStoriesFile)
		}
	}

	metrics := services.InitMetrics()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "VibeRehab v1.0",
		UnescapePath: true, // decode URL-encoded path parameters (filenames)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("viberehab")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS for frontend communication
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	dashboardHandler := handlers.NewDashboardHandler()
	progressHandler := handlers.NewProgressHandler()
	aiHandler := handlers.NewAIHandler(modelService, audioStore, textStore, metrics)
	audioHandler := handlers.NewAudioHandler(audioStore, metrics, cfg.SweepExtensions)

	// Routes
	app.Get("/", healthHandler.Index)
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Get("/dashboard", dashboardHandler.Handle)
	api.Post("/progress/complete/:taskId", progressHandler.CompleteTask)

	ai := api.Group("/ai")
	ai.Get("/vibestory", aiHandler.VibeStory)
	ai.Post("/generateschedule", aiHandler.GenerateSchedule)
	ai.Get("/stories", aiHandler.ListStories)
	ai.Get("/stories/:id", aiHandler.GetStory)
	ai.Get("/schedules", aiHandler.ListSchedules)
	ai.Get("/schedules/:id", aiHandler.GetSchedule)

	api.Get("/audio/list", audioHandler.List)
	api.Get("/audio/:filename", audioHandler.Get)
	api.Get("/audio/:filename/info", audioHandler.Info)
	api.Delete("/audio/:filename", audioHandler.Delete)
	api.Post("/audio/cleanup", audioHandler.Cleanup)
	api.Post("/text/cleanup", aiHandler.CleanupText)

	// Optional scheduled retention sweep
	if cfg.CleanupIntervalHours > 0 {
		retentionJob, err := jobs.NewRetentionJob(audioStore, textStore, cfg)
		if err != nil {
			log.Fatalf("❌ Failed to create retention job: %v", err)
		}
		if err := retentionJob.Start(); err != nil {
			log.Fatalf("❌ Failed to start retention job: %v", err)
		}
		defer retentionJob.Stop()
	}

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Printf("🛑 Received %v, shutting down...", sig)

		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Error during shutdown: %v", err)
		}
	}()

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}
