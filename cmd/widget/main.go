package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/bookerai-widget/internal/api/router"
	"github.com/wolfman30/bookerai-widget/internal/app/bootstrap"
	appconfig "github.com/wolfman30/bookerai-widget/internal/config"
	httpmiddleware "github.com/wolfman30/bookerai-widget/internal/http/middleware"
	"github.com/wolfman30/bookerai-widget/internal/widget"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting bookerai widget server",
		"env", cfg.Env,
		"port", cfg.Port,
		"booking_api", cfg.BookingAPIBaseURL,
	)
	for _, warning := range cfg.Validate() {
		logger.Warn("configuration warning", "detail", warning)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	go app.hub.Run(ctx)
	go app.limiter.Run(ctx.Done())

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", app.srv.Addr)
		if err := app.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...", "live_sessions", app.hub.Len())
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	app.close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	srv     *http.Server
	hub     *widget.Hub
	limiter *httpmiddleware.RateLimiter
	close   func()
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	store := bootstrap.BuildSessionStore(cfg, redisClient, logger)
	widgetMetrics, metricsHandler := bootstrap.BuildMetrics(cfg)
	client := bootstrap.BuildBookingClient(cfg, widgetMetrics, logger)

	hub, err := widget.NewHub(widget.HubConfig{
		NewSelector: bootstrap.BuildSelectorFactory(cfg, client, widgetMetrics, logger),
		Store:       store,
		TTL:         cfg.SessionTTL,
		Logger:      logger,
		Metrics:     widgetMetrics,
	})
	if err != nil {
		return nil, err
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := router.New(&router.Config{
		Logger:             logger,
		Widget:             widget.NewHandler(hub, cfg.CORSAllowedOrigins, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	// WriteTimeout stays unset: widget sockets are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &app{
		srv:     srv,
		hub:     hub,
		limiter: limiter,
		close: func() {
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}
