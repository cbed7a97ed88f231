package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/earnings-quality/internal/config"
	"github.com/mauv0809/earnings-quality/internal/db"
	"github.com/mauv0809/earnings-quality/internal/handlers"
	"github.com/mauv0809/earnings-quality/internal/ingest"
)

func main() {
	// Load .env file if it exists (local dev)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Get database URL
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Run migrations
	if err := db.RunMigrations(databaseURL); err != nil {
		log.Printf("Warning: Could not run migrations: %v", err)
	} else {
		log.Println("Migrations completed")
	}

	// Connect to database
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Setup Echo
	e := echo.New()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.Printf("%d %s", v.Status, v.URI)
			} else {
				log.Printf("%d %s - %v", v.Status, v.URI, v.Error)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Setup handlers
	h := handlers.New()
	repo := db.NewRepository(pool)
	decompose := handlers.NewDecomposeHandler(repo, cfg.Engine)

	// Setup ingest client (requires FINANCIALS_API_KEY)
	var ingestHandler *handlers.IngestHandler
	if apiKey := os.Getenv("FINANCIALS_API_KEY"); apiKey != "" {
		client := ingest.NewClient(cfg.Ingest.BaseURL, apiKey, cfg.Ingest.RequestsPerSecond)
		ingestHandler = handlers.NewIngestHandler(client, repo)
		log.Println("Ingest client initialized")
	} else {
		log.Println("Warning: FINANCIALS_API_KEY not set, ingestion endpoints disabled")
	}

	// Routes
	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.GET("/decomposition", decompose.Query)

	admin := e.Group("/admin")
	admin.POST("/decompose", decompose.Decompose)
	if ingestHandler != nil {
		admin.GET("/ingest/status", ingestHandler.IngestStatus)
		admin.POST("/ingest/banks", ingestHandler.IngestBanks)
		admin.POST("/ingest/financials", ingestHandler.IngestFinancials)
		log.Println("Ingestion endpoints registered")
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	log.Printf("Starting server on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
