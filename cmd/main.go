package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-studio/internal/di"
	"product-studio/internal/settings"
	httpadapter "product-studio/internal/settings/adapter/http"
	settingsconfig "product-studio/internal/settings/config"
	"product-studio/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port        string `env:"SERVER_PORT" envDefault:"5000"`
	APIPrefix   string `env:"API_PREFIX" envDefault:"/api"`
	BodyLimitMB int    `env:"BODY_LIMIT_MB" envDefault:"50"`
}

func main() {
	fmt.Println("🚀 Product Studio - Starting Application...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}
	settingsCfg, err := settingsconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load settings configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Info("Application configuration loaded successfully")

	accessLog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build access logger: %v", err)
	}
	defer func() { _ = accessLog.Sync() }()

	container := di.NewContainer(appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	// MongoDB. A bad URI is fatal; an unreachable server is not, so the
	// process can start before the database does.
	if os.Getenv("MONGODB_URI") == "" {
		appLogger.Warnf("MONGODB_URI not set, using %s", settingsCfg.MongoDBURI)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(settingsCfg.MongoDBURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Errorf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	if err := mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error("MongoDB connection error", zap.Error(err))
	} else {
		appLogger.Info("MongoDB connection established successfully")
	}

	var redisClient *redis.Client
	if settingsCfg.Redis.Enabled {
		redisClient = settingsconfig.NewRedisClient(&settingsCfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis unreachable, latest-snapshot cache will fall back to MongoDB", zap.Error(err))
		}
	}

	if err := container.InitializeSettings(mongoClient.Database(settingsCfg.DatabaseName), redisClient); err != nil {
		log.Fatalf("Failed to initialize Settings module: %v", err)
	}
	appLogger.Info("Settings module initialized successfully")

	app := fiber.New(fiber.Config{
		AppName:      "Product Studio API v1.0",
		BodyLimit:    serverCfg.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			appLogger.Errorf("HTTP Error: %v", err)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID, X-Studio-Session",
	}))
	app.Use(httpadapter.RequestIDMiddleware())
	app.Use(httpadapter.AccessLogMiddleware(accessLog))

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			appLogger.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"message": "One or more services are unhealthy",
			})
		}

		response := fiber.Map{
			"status":    "HEALTHY",
			"message":   "Product Studio API is running",
			"timestamp": time.Now().UTC(),
		}
		if m, err := di.GetService[*settings.SettingsModule](container); err == nil {
			response["activity"] = m.Activity()
		}
		return c.JSON(response)
	})

	settingsModule, err := di.GetService[*settings.SettingsModule](container)
	if err != nil {
		log.Fatalf("Settings module not registered: %v", err)
	}
	settingsModule.RegisterRoutes(app.Group(serverCfg.APIPrefix))
	settingsModule.StartWithTimeout()
	appLogger.Infof("Settings routes registered under %s", serverCfg.APIPrefix)

	serverAddr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	appLogger.Infof("🌟 Server running on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed to start: %v", err)
			log.Fatalf("Server startup failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)
		fmt.Println("🛑 Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}

		appLogger.Info("HTTP server stopped")
	}

	fmt.Println("✅ Application stopped gracefully.")
}
