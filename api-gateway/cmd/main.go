package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/platform/api-gateway/internal/proxy"
	"github.com/eaglebank/platform/shared/config"
	"github.com/eaglebank/platform/shared/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "api-gateway"

func main() {
	cfg, err := config.Load("GATEWAY", config.Defaults{
		Name: serviceName,
		Port: "8080",
	})
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config(cfg.Log), serviceName)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.Recovery(log), logger.GinMiddleware(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	if err := proxy.Register(router, proxy.Upstreams{
		LedgerURL:   cfg.Gateway.LedgerURL,
		RegistryURL: cfg.Gateway.RegistryURL,
	}, log); err != nil {
		log.Fatal("Invalid upstream configuration", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("API Gateway starting",
			zap.String("port", cfg.App.Port),
			zap.String("ledger", cfg.Gateway.LedgerURL),
			zap.String("registry", cfg.Gateway.RegistryURL),
		)
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
