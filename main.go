package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"classroom-gateway/config"
	"classroom-gateway/db"
	"classroom-gateway/handlers"
	"classroom-gateway/models"
	"classroom-gateway/notify"
	"classroom-gateway/platform"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	var (
		clients     platform.Factory
		redisClient *redis.Client
		err         error
	)

	switch cfg.Backend {
	case config.BackendPlatform:
		clients = platform.NewHTTPFactory(config.PlatformCredentials, &http.Client{Timeout: cfg.PlatformTimeout})

		// Redis only backs the notification feed here.
		redisClient, err = db.InitializeRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("Notification feed disabled", "error", err)
		}
	default:
		redisClient, err = db.InitializeRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("Sandbox backend needs Redis", "error", err)
			os.Exit(1)
		}
		store := db.NewRedisStore(redisClient, db.DefaultSchemas(), logger.With("component", "sandbox"))
		if cfg.SeedData {
			checkAndSeedData(ctx, store)
		}
		clients = platform.Static(store)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	sinks := notify.Multi{notify.LogSink{Logger: logger}}
	var feed *notify.RedisFeed
	if redisClient != nil {
		feed = notify.NewRedisFeed(redisClient, cfg.NotificationFeedCap, logger)
		sinks = append(sinks, feed)
	}

	gatewayLogger := logger.With("component", "gateway")
	router := handlers.SetupRouter(handlers.Gateways{
		Students:    models.NewStudentGateway(clients, gatewayLogger),
		Classes:     models.NewClassGateway(clients, gatewayLogger),
		Assignments: models.NewAssignmentGateway(clients, gatewayLogger),
	}, sinks, feed, logger)

	addr := ":" + cfg.Port
	slog.Info("Starting server", "addr", addr, "backend", cfg.Backend)
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to run server", "error", err)
		os.Exit(1)
	}
}

// checkAndSeedData installs demo data on an empty sandbox. Failures are
// logged and never stop startup.
func checkAndSeedData(ctx context.Context, store *db.RedisStore) {
	seeded, err := store.Seed(ctx)
	if err != nil {
		slog.Warn("Could not seed sandbox data", "error", err)
		return
	}
	if seeded {
		slog.Info("Sandbox seeded with demo data")
	}
}
