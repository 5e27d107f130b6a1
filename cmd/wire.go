package main

import (
	"context"
	"fmt"

	"agrisense/internal/config"
	"agrisense/internal/db"
	"agrisense/internal/environment"
	"agrisense/internal/kv"
	"agrisense/internal/location"
	"agrisense/internal/logging"
	"agrisense/internal/metrics"
	"agrisense/internal/models"
	"agrisense/internal/notification"
	"agrisense/internal/presenter"
	"agrisense/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

// app holds every long-lived component built from the configuration.
type app struct {
	cfg      config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db    *db.DB
	redis *kv.Redis

	synth     *environment.Synthesizer
	geocoder  *location.Geocoder
	locations *location.Static
	hub       *presenter.Hub
	telegram  *presenter.Telegram
	store     *notification.Store
	svc       *services.Service
}

func defaultLocation(cfg config.Config) models.Location {
	return models.Location{
		Latitude:  cfg.Location.DefaultLatitude,
		Longitude: cfg.Location.DefaultLongitude,
		Name:      location.Default.Name,
	}
}

func newSynthesizer(cfg config.Config, logger *logging.Logger, m *metrics.Metrics) *environment.Synthesizer {
	opts := []environment.Option{environment.WithMetrics(m)}
	if cfg.LiveDataEnabled() {
		power := environment.NewPowerClient(cfg.Environment.PowerURL,
			environment.WithAPIKey(cfg.Environment.APIKey),
			environment.WithTimeout(cfg.Environment.FetchTimeout),
		)
		opts = append(opts, environment.WithLiveSource(power, cfg.Environment.FetchTimeout))
		logger.Infof("Live environmental data enabled via %s", cfg.Environment.PowerURL)
	}
	return environment.New(logger, opts...)
}

func buildApp(ctx context.Context, cfg config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var store kv.Store
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		conn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = conn
		if err := conn.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		store = conn.KV()
	case config.BackendRedis:
		r, err := kv.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = r
		store = r
	default:
		store = kv.NewMemory()
	}
	logger.Infof("Notification store backend: %s", cfg.Store.Backend)

	a.synth = newSynthesizer(cfg, logger, a.metrics)
	a.geocoder = location.NewGeocoder(cfg.Location.GeocoderURL, logger)
	a.locations = location.NewStatic(nil)

	a.hub = presenter.NewHub(logger)
	platforms := presenter.Multi{a.hub}
	if cfg.TelegramEnabled() {
		a.telegram = presenter.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RateLimit, logger)
		platforms = append(platforms, a.telegram)
	}

	a.store = notification.New(store, logger,
		notification.WithPlatform(platforms),
		notification.WithMetrics(a.metrics),
		notification.WithMaxItems(cfg.Notification.MaxItems),
	)

	opts := []services.Option{
		services.WithMetrics(a.metrics),
		services.WithNamer(a.geocoder),
	}
	if a.db != nil {
		opts = append(opts, services.WithHistory(a.db))
	}
	a.svc = services.New(a.synth, a.store,
		location.NewFallback(a.locations, defaultLocation(cfg), logger),
		logger, cfg, opts...)
	return a, nil
}

// Close releases connections held by the app.
func (a *app) Close() error {
	var err error
	if a.hub != nil {
		err = multierr.Append(err, a.hub.Close())
	}
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	if a.db != nil {
		a.db.Close()
	}
	return err
}
