package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/api/handlers"
	"github.com/Daffaariff/nawatech-chatbot/internal/cache/redis"
	"github.com/Daffaariff/nawatech-chatbot/internal/embedding"
	"github.com/Daffaariff/nawatech-chatbot/internal/evaluation"
	"github.com/Daffaariff/nawatech-chatbot/internal/ingestion"
	"github.com/Daffaariff/nawatech-chatbot/internal/llm"
	"github.com/Daffaariff/nawatech-chatbot/internal/metrics"
	"github.com/Daffaariff/nawatech-chatbot/internal/qa"
	"github.com/Daffaariff/nawatech-chatbot/internal/retrieval"
	"github.com/Daffaariff/nawatech-chatbot/internal/storage/sqlite"
	"github.com/Daffaariff/nawatech-chatbot/internal/vector"
	"github.com/Daffaariff/nawatech-chatbot/pkg/config"
	appLogger "github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Nawatech FAQ Chatbot API Server")

	metrics.Init()

	entries, err := ingestion.LoadFAQData(cfg.Data.FAQFile)
	if err != nil {
		appLogger.Fatal("Failed to load FAQ data", zap.Error(err))
	}

	documents := ingestion.BuildDocuments(entries)

	provider := embedding.NewFromConfig(cfg.Embedding, cfg.LLM.APIKey)

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	cacheTTL := time.Duration(cfg.Redis.TTLSec) * time.Second

	store := vector.NewStore(provider)
	if cacheClient != nil {
		store.WithEmbeddingCache(cacheClient, cacheTTL)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := store.Initialize(initCtx, documents); err != nil {
		cancel()
		appLogger.Fatal("Failed to initialize vector store", zap.Error(err))
	}
	cancel()

	retriever := retrieval.NewRetriever(store, cfg.Retrieval.TopK, cfg.Retrieval.FetchMultiplier)

	llmClient := llm.NewClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	evaluator := evaluation.NewEvaluator(cfg.Evaluator.UseModel, llmClient)

	var db *sqlite.Client
	db, err = sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Warn("SQLite unavailable, query history disabled", zap.Error(err))
		db = nil
	} else {
		defer db.Close()
		if err := db.InitSchema(); err != nil {
			appLogger.Warn("Failed to initialize schema, query history disabled", zap.Error(err))
			db.Close()
			db = nil
		}
	}

	engine := qa.NewEngine(retriever, llmClient, evaluator)
	if db != nil {
		engine.WithRecorder(db)
	}
	if cacheClient != nil {
		engine.WithCache(cacheClient, cacheTTL)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	queryHandler := handlers.NewQueryHandler(engine, db)
	wsHandler := handlers.NewWebSocketHandler(engine, cfg.Chat.MaxHistoryLength)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if !store.Ready() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ready",
			"documents": store.Len(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
