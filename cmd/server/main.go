package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"studymate/internal/config"
	"studymate/internal/database"
	"studymate/internal/handlers"
	"studymate/internal/jobs"
	"studymate/internal/logging"
	"studymate/internal/middleware"
	"studymate/internal/services"
	"studymate/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting StudyMate Server...")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// Storage: SQLite by default, in-memory when no database path is set.
	var db *database.DB
	var stores *store.Stores
	if cfg.DatabasePath != "" {
		var err error
		db, err = database.New(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
		stores = store.NewSQLiteStores(db)
	} else {
		log.Println("⚠️  DATABASE_PATH not set — using in-memory stores (state is lost on restart)")
		stores = store.NewMemoryStores()
	}

	// MongoDB is optional; when present it takes over chat history storage.
	if cfg.MongoURI != "" {
		log.Println("🔗 Connecting to MongoDB...")
		mongoDB, err := database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			log.Printf("⚠️ Failed to connect to MongoDB: %v (keeping default history store)", err)
		} else {
			defer mongoDB.Close(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := store.EnsureHistoryIndexes(ctx, mongoDB); err != nil {
				log.Printf("⚠️ Failed to ensure history indexes: %v", err)
			}
			cancel()

			stores.History = store.NewMongoHistory(mongoDB)
			log.Println("✅ MongoDB connected — chat history stored in MongoDB")
		}
	}

	// Redis is optional; when present, stat and achievement events are
	// published for live UI updates.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (event publishing disabled)", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	} else {
		log.Println("⚠️  REDIS_URL not set — event publishing disabled")
	}

	metrics := services.InitMetrics()
	pubsubService := services.NewPubSubService(redisService)

	progressService := services.NewProgressService(stores, pubsubService, metrics, cfg.Achievements)
	documentService := services.NewDocumentService(stores.Documents, progressService, metrics)

	generator := services.NewGenerationService(
		cfg.LLMBaseURL,
		cfg.LLMAPIKey,
		cfg.LLMModel,
		cfg.LLMTimeout,
		cfg.LLMRateLimitRPS,
	)

	chatService := services.NewChatService(
		services.NewContextService(),
		services.NewGroundingService(cfg.GroundingBudgetChars),
		services.NewPromptBuilder(cfg.HistoryWindow),
		generator,
		progressService,
		stores.Documents,
		metrics,
		cfg.SessionTTL,
	)

	// Background retention jobs
	scheduler := jobs.NewJobScheduler()
	if cfg.RetentionJobEnabled {
		scheduler.Register("history-retention", jobs.NewHistoryRetentionJob(stores.History, cfg.HistoryRetention, 24*time.Hour))
		scheduler.Register("failed-upload-cleanup", jobs.NewFailedUploadCleanupJob(stores.Documents, cfg.FailedUploadMaxAge, time.Hour))
		scheduler.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      "StudyMate v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    int(cfg.UploadMaxBytes) + 1024*1024, // uploads plus multipart overhead
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("studymate")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-User-ID",
		AllowCredentials: cfg.CORSOrigin != "*",
	}))

	app.Use("/api", middleware.UserContext())

	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Printf("🛡️  [RATE-LIMIT] Global=%d/min, Chat=%d/min, Upload=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.ChatMax, rateLimitConfig.UploadMax)

	// Handlers
	healthHandler := handlers.NewHealthHandler(sqlDB(db), redisService)
	chatHandler := handlers.NewChatHandler(chatService)
	documentHandler := handlers.NewDocumentHandler(documentService, cfg.UploadMaxBytes)
	statsHandler := handlers.NewStatsHandler(stores.Stats, stores.Activity, progressService)
	achievementHandler := handlers.NewAchievementHandler(stores.Achievements, progressService)
	profileHandler := handlers.NewProfileHandler(stores.Profiles, stores.Settings)
	historyHandler := handlers.NewHistoryHandler(stores.History)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")

	chat := api.Group("/chat")
	chat.Post("/message", middleware.ChatRateLimiter(rateLimitConfig), chatHandler.SendMessage)
	chat.Post("/clear", chatHandler.ClearSession)

	documents := api.Group("/documents")
	documents.Post("/upload", middleware.UploadRateLimiter(rateLimitConfig), documentHandler.Upload)
	documents.Get("/", documentHandler.List)
	documents.Delete("/:id", documentHandler.Delete)

	users := api.Group("/users/:userId")
	users.Get("/stats", statsHandler.GetStats)
	users.Post("/stats/increment", statsHandler.IncrementStat)
	users.Get("/activity", statsHandler.GetActivity)
	users.Post("/activity", statsHandler.AddActivity)
	users.Get("/achievements", achievementHandler.List)
	users.Post("/achievements/:id", achievementHandler.Unlock)
	users.Get("/profile", profileHandler.GetProfile)
	users.Put("/profile", profileHandler.UpdateProfile)
	users.Get("/settings", profileHandler.GetSettings)
	users.Put("/settings", profileHandler.UpdateSettings)
	users.Get("/history", historyHandler.List)
	users.Post("/history", historyHandler.Save)
	users.Get("/history/:sessionId", historyHandler.Get)
	users.Get("/history/:sessionId/export", historyHandler.Export)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")
		scheduler.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// sqlDB unwraps the database handle for the health check; nil when running on
// the in-memory stores.
func sqlDB(db *database.DB) *sql.DB {
	if db == nil {
		return nil
	}
	return db.DB
}
