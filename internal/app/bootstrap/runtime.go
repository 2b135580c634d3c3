// Package bootstrap wires the widget runtime from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/bookerai-widget/internal/bookerapi"
	"github.com/wolfman30/bookerai-widget/internal/calendar"
	appconfig "github.com/wolfman30/bookerai-widget/internal/config"
	"github.com/wolfman30/bookerai-widget/internal/observability/metrics"
	"github.com/wolfman30/bookerai-widget/internal/provider"
	"github.com/wolfman30/bookerai-widget/internal/selector"
	"github.com/wolfman30/bookerai-widget/internal/session"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; falling back to in-memory sessions", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks Redis when a client is available, memory otherwise.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) session.Store {
	if redisClient != nil {
		logger.Info("session snapshots stored in redis", "ttl", cfg.SessionTTL.String())
		return session.NewRedisStore(redisClient, cfg.SessionTTL, nil)
	}
	logger.Info("session snapshots stored in memory", "ttl", cfg.SessionTTL.String())
	return session.NewMemoryStore(cfg.SessionTTL)
}

// BuildMetrics returns widget metrics on a dedicated registry and the
// /metrics handler for it. Both are nil when metrics are disabled.
func BuildMetrics(cfg *appconfig.Config) (*metrics.WidgetMetrics, http.Handler) {
	if cfg == nil || !cfg.MetricsEnabled {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewWidgetMetrics(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// BuildSelectorFactory returns the per-session selector constructor shared by
// every widget session.
func BuildSelectorFactory(cfg *appconfig.Config, backend selector.Backend, m *metrics.WidgetMetrics, logger *logging.Logger) func(selector.Observer) (*selector.Selector, error) {
	profile := provider.ParseProfile(cfg.ProviderJSON)
	if !profile.HasID() {
		logger.Warn("PROVIDER_JSON has no barberId; slot requests will fail")
	}
	if creds := provider.ParseBackend(cfg.BackendJSON); creds.Configured() {
		logger.Debug("third-party backend credentials present", "url", creds.URL)
	}

	window := calendar.NewWindow(cfg.BookingWindowDays)
	loc := cfg.Location()
	return func(obs selector.Observer) (*selector.Selector, error) {
		return selector.New(selector.Options{
			Provider:        profile,
			Backend:         backend,
			Window:          window,
			StripDays:       cfg.DayStripDays,
			ConfirmationURL: cfg.ConfirmationURL,
			Location:        loc,
			Logger:          logger,
			Metrics:         m,
			Observer:        obs,
		})
	}
}

// BuildBookingClient creates the booking API client. m may be nil.
func BuildBookingClient(cfg *appconfig.Config, m *metrics.WidgetMetrics, logger *logging.Logger) *bookerapi.Client {
	return bookerapi.NewClient(cfg.BookingAPIBaseURL, logger.Component("bookerapi"),
		bookerapi.WithTimeout(cfg.BookingAPITimeout),
		bookerapi.WithMetrics(m),
	)
}
