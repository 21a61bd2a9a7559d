package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/platform/account-service/internal/command"
	"github.com/eaglebank/platform/account-service/internal/handler"
	"github.com/eaglebank/platform/account-service/internal/query"
	"github.com/eaglebank/platform/account-service/internal/repository"
	"github.com/eaglebank/platform/account-service/migrations"
	"github.com/eaglebank/platform/shared/config"
	"github.com/eaglebank/platform/shared/database"
	"github.com/eaglebank/platform/shared/events"
	"github.com/eaglebank/platform/shared/gate"
	"github.com/eaglebank/platform/shared/logger"
	"github.com/eaglebank/platform/shared/middleware"
	"github.com/eaglebank/platform/shared/models"
	sharedredis "github.com/eaglebank/platform/shared/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load("LEDGER", config.Defaults{
		Name:    serviceName,
		Port:    "8083",
		DBName:  "eagle_accounts",
		PeerURL: "http://localhost:8082",
	})
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config(cfg.Log), serviceName)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection (write store)
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, migrations.FS, ".", log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis connection (read model store + event streaming)
	redis, err := sharedredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client, 10000)
	cache := sharedredis.NewViewCache[models.AccountView](redis.Client, "account:view:", cfg.Redis.ViewTTL, log)

	writeRepo := repository.NewAccountWriteRepository(db)
	readRepo := repository.NewAccountReadRepository(db, cache)

	customers := gate.NewCustomerGate(gate.Options{
		BaseURL:  cfg.Gate.PeerURL,
		Timeout:  cfg.Gate.Timeout,
		Caller:   serviceName,
		Secret:   []byte(cfg.Auth.ServiceSecret),
		TokenTTL: cfg.Auth.TokenTTL,
		Logger:   log,
	})

	commandSvc := command.NewAccountCommandService(writeRepo, readRepo, publisher, customers, log)
	querySvc := query.NewAccountQueryService(readRepo)

	accountHandler := handler.NewAccountHandler(commandSvc, querySvc)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.Recovery(log), logger.GinMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	accountHandler.Register(router, middleware.ServiceAuth([]byte(cfg.Auth.ServiceSecret)))

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "account-service-group",
			Consumer: hostname(),
			Stream:   events.CustomerEventsStream,
			Handler:  commandSvc.HandleCustomerEvent,
			Logger:   log,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Subscriber stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Account service starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "account-consumer-1"
}
