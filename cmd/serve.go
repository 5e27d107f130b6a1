package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"agrisense/internal/api"
	"agrisense/internal/config"
	"agrisense/internal/kafka"
	"agrisense/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the AgriSense server",
	Long: `Start the HTTP API, the refresh worker pool, the retention and summary
schedules and, when KAFKA_BROKER is set, the refresh request consumer.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		err = multierr.Append(err, logger.Close())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	if a.telegram != nil {
		perm, perr := a.telegram.RequestPermission(ctx)
		if perr != nil {
			logger.Warnf("Telegram bot verification failed: %v", perr)
		}
		logger.Infof("Telegram permission: %s", perm)
	}

	var wg sync.WaitGroup
	a.svc.Start(&wg)

	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer, err = kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, a.svc, logger)
		if err != nil {
			a.svc.Stop()
			wg.Wait()
			return fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		consumer.Start(ctx, &wg)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := api.Deps{
		Pipeline:      a.svc,
		Notifications: a.store,
		Locations:     a.locations,
		Geocoder:      a.geocoder,
		Hub:           a.hub,
		Gatherer:      a.registry,
	}
	if a.db != nil {
		deps.History = a.db
	}
	server := &http.Server{
		Handler:      api.NewRouter(deps, logger, cfg),
		Addr:         cfg.API.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutdown signal received")
	case err = <-serveErr:
		logger.Errorf("API server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = multierr.Append(err, server.Shutdown(shutdownCtx))

	a.svc.Stop()
	if consumer != nil {
		err = multierr.Append(err, consumer.Close())
	}
	wg.Wait()
	logger.Infof("Service stopped")
	return err
}
