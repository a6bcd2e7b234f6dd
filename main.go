// main.go
package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"prepaid-shop/cmd"
	"prepaid-shop/internal/data/repository"
	"prepaid-shop/internal/usecase"
	"prepaid-shop/internal/wire"
	"prepaid-shop/pkg/cache"
	"prepaid-shop/pkg/database"
	"prepaid-shop/pkg/events"
	"prepaid-shop/pkg/metrics"
	"prepaid-shop/pkg/notify"
	"prepaid-shop/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	metrics.RegisterDBPool(prometheus.DefaultRegisterer, db.PoolStats)

	if config.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	deps := usecase.Dependencies{}

	// Redis backs the balance cache and the change feed; both are optional
	if config.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(config.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache and change feed", zap.Error(err))
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewRedisBalanceCache(rdb, config.Redis.BalanceTTL)
			deps.Events = events.NewRedisPublisher(rdb, config.Redis.EventsChannel)
			logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
		}
	}

	if config.Telegram.BotToken != "" {
		notifier, err := notify.NewTelegramNotifier(config.Telegram.BotToken, config.Telegram.AdminChatID)
		if err != nil {
			logger.Warn("Telegram notifier disabled", zap.Error(err))
		} else {
			deps.Notifier = notifier
		}
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, deps, config, logger)

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	app.Limiter.StartCleanup(time.Minute, stopCleanup)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
