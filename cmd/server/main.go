package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/config"
	"github.com/hardbanrecords/backoffice/internal/engine"
	"github.com/hardbanrecords/backoffice/internal/handler"
	"github.com/hardbanrecords/backoffice/internal/observability"
	"github.com/hardbanrecords/backoffice/internal/platform"
	"github.com/hardbanrecords/backoffice/internal/store"
	ws "github.com/hardbanrecords/backoffice/internal/websocket"
	"github.com/hardbanrecords/backoffice/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := observability.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(slogger)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection; fall back to in-memory stores when absent
	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slogger.Warn("redis not available, using in-memory stores", slog.String("error", err.Error()))
		redisAvailable = false
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(slogger)
	go hub.Run()

	// Initialize external clients
	deliveryClient := client.NewDeliveryClient(&cfg.Delivery)
	exchangeClient := client.NewExchangeClient(&cfg.Exchange)
	if !deliveryClient.IsConfigured() {
		slogger.Info("delivery API not configured, submissions use mock results")
	}

	// Platform adapter registry. Unknown platforms are a startup error.
	registry, err := platform.NewRegistry(
		platform.NewSpotifyAdapter(deliveryClient),
		platform.NewAppleMusicAdapter(deliveryClient),
		platform.NewBandcampAdapter(deliveryClient),
	)
	if err != nil {
		log.Fatalf("Failed to build platform registry: %v", err)
	}

	// Stores and sinks
	var jobStore engine.JobStore
	var channelSink engine.ChannelStatusSink
	if redisAvailable {
		jobStore = store.NewRedisJobStore(redisClient)
		channelSink = store.NewRedisChannelStore(redisClient)
	} else {
		jobStore = store.NewMemoryJobStore()
		channelSink = store.NewMemoryChannelStore()
	}
	earningsStore := store.NewMemoryEarningsStore()

	// Track catalog for royalty ingestion. Without seeded tracks the
	// engine falls back to keying earnings by title and artist.
	var resolver engine.CatalogResolver
	if len(cfg.Catalog.Tracks) > 0 {
		catalog := store.NewMemoryCatalog()
		for _, track := range cfg.Catalog.Tracks {
			catalog.Add(store.CatalogEntry{
				ISRC:     track.ISRC,
				Title:    track.Title,
				Artist:   track.Artist,
				TrackID:  track.TrackID,
				HolderID: track.HolderID,
			})
		}
		resolver = catalog
		slogger.Info("catalog loaded", slog.Int("tracks", len(cfg.Catalog.Tracks)))
	} else {
		slogger.Info("no catalog configured, earnings keyed by title and artist")
	}

	// Job engine
	eng, err := engine.New(engine.Options{
		Config:            cfg.Engine,
		Registry:          registry,
		Fetcher:           client.NewReportFetcher(),
		Converter:         exchangeClient,
		Resolver:          resolver,
		Channels:          channelSink,
		Earnings:          earningsStore,
		Notifier:          engine.FanoutNotifier{hub, engine.LogNotifier{Logger: slogger}},
		Store:             jobStore,
		Logger:            slogger,
		ReportingCurrency: cfg.Statement.ReportingCurrency,
		CommissionRate:    cfg.Statement.CommissionRate,
	})
	if err != nil {
		log.Fatalf("Failed to build job engine: %v", err)
	}
	defer eng.Close()

	// Initialize handlers
	jobsHandler := handler.NewJobsHandler(eng, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    64 * 1024 * 1024, // inline report uploads
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    redisAvailable,
				"delivery": deliveryClient.IsConfigured(),
				"exchange": exchangeClient.IsConfigured(),
			},
			"platforms": registry.Names(),
			"queue":     eng.QueueLength(),
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/api")

	api.Post("/distribution/start", jobsHandler.StartDistribution)
	api.Post("/ingestion/start", jobsHandler.StartIngestion)
	api.Get("/jobs/:jobId", jobsHandler.Status)
	api.Post("/jobs/:jobId/cancel", jobsHandler.Cancel)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slogger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slogger.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	slogger.Info("server starting", slog.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
