// Command bookctl drives the booking selector from a terminal against a live
// booking backend.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/bookerai-widget/internal/app/bootstrap"
	appconfig "github.com/wolfman30/bookerai-widget/internal/config"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := appconfig.Load()

	baseURL := flag.String("api", cfg.BookingAPIBaseURL, "booking API base URL")
	providerJSON := flag.String("provider", cfg.ProviderJSON, `provider JSON, e.g. {"barberId":"b-1","name":"Sam"}`)
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()
	cfg.BookingAPIBaseURL = *baseURL
	cfg.ProviderJSON = *providerJSON

	logger := logging.NewWithWriter(*logLevel, "text", os.Stderr)
	for _, warning := range cfg.Validate() {
		logger.Warn("configuration warning", "detail", warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bootstrap.BuildBookingClient(cfg, nil, logger)
	sel, err := bootstrap.BuildSelectorFactory(cfg, client, nil, logger)(nil)
	if err != nil {
		logger.Error("failed to build selector", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, sel, os.Stdin, os.Stdout); err != nil {
		logger.Error("bookctl failed", "error", err)
		os.Exit(1)
	}
}
