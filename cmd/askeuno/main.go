package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DylanFeger/askeuno-sub001/internal/api"
	"github.com/DylanFeger/askeuno-sub001/internal/api/handlers"
	"github.com/DylanFeger/askeuno-sub001/internal/repository"
	"github.com/DylanFeger/askeuno-sub001/internal/service"
	"github.com/DylanFeger/askeuno-sub001/pkg/auth"
	"github.com/DylanFeger/askeuno-sub001/pkg/config"
	"github.com/DylanFeger/askeuno-sub001/pkg/logger"
	"github.com/DylanFeger/askeuno-sub001/pkg/postgres"

	"go.uber.org/zap"
)

// @title Askeuno API
// @version 1.0
// @description Multi-source data analytics chat: upload or connect datasets and ask questions in plain language

// @contact.name API Support
// @contact.email support@askeuno.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting askeuno service")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	convRepo := repository.NewConversationRepository(db, appLogger)
	msgRepo := repository.NewMessageRepository(db, appLogger)
	sourceRepo := repository.NewDataSourceRepository(db, appLogger)
	rowRepo := repository.NewSourceRowRepository(db, appLogger)

	// JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	tierService := service.NewTierService(&cfg.Tiers)
	connectorService := service.NewConnectorService(&cfg.Query, appLogger)
	cacheService := service.NewQueryCacheService(msgRepo, &cfg.Cache, appLogger)

	correlationService, err := service.NewCorrelationService(rowRepo, connectorService, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize correlation planner", zap.Error(err))
	}

	llmService, err := service.NewLLMService(&cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	sourceService := service.NewDataSourceService(sourceRepo, rowRepo, convRepo, connectorService, tierService, cfg.Query.MaxRows, appLogger)
	chatService := service.NewChatService(cacheService, correlationService, tierService, llmService, msgRepo, convRepo, sourceRepo, userRepo, appLogger)

	// Periodic sweep of expired cache hashes
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cacheService.ClearExpiredCache(ctx)
		}
	}()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	sourceHandler := handlers.NewDataSourceHandler(sourceService, authService, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, convRepo, msgRepo, appLogger)

	app := api.SetupRouter(authHandler, sourceHandler, chatHandler, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
