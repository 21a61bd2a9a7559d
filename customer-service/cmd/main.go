package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/platform/customer-service/internal/command"
	"github.com/eaglebank/platform/customer-service/internal/handler"
	"github.com/eaglebank/platform/customer-service/internal/query"
	"github.com/eaglebank/platform/customer-service/internal/repository"
	"github.com/eaglebank/platform/customer-service/migrations"
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

const serviceName = "customer-service"

func main() {
	cfg, err := config.Load("REGISTRY", config.Defaults{
		Name:    serviceName,
		Port:    "8082",
		DBName:  "eagle_customers",
		PeerURL: "http://localhost:8083",
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
	cache := sharedredis.NewViewCache[models.CustomerView](redis.Client, "customer:view:", cfg.Redis.ViewTTL, log)

	writeRepo := repository.NewCustomerWriteRepository(db)
	readRepo := repository.NewCustomerReadRepository(db, cache)

	accounts := gate.NewAccountGate(gate.Options{
		BaseURL:  cfg.Gate.PeerURL,
		Timeout:  cfg.Gate.Timeout,
		Caller:   serviceName,
		Secret:   []byte(cfg.Auth.ServiceSecret),
		TokenTTL: cfg.Auth.TokenTTL,
		Logger:   log,
	})

	commandSvc := command.NewCustomerCommandService(writeRepo, readRepo, publisher, accounts, log)
	querySvc := query.NewCustomerQueryService(readRepo)

	customerHandler := handler.NewCustomerHandler(commandSvc, querySvc)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.Recovery(log), logger.GinMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	customerHandler.Register(router, middleware.ServiceAuth([]byte(cfg.Auth.ServiceSecret)))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Customer service starting", zap.String("port", cfg.App.Port))
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
