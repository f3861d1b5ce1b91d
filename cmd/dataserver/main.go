// Command dataserver serves the stargazing forecast API and runs the NOAA
// dataset acquisition loop.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wmarcoyu/starchasers-dataserver/internal/acquire"
	"github.com/wmarcoyu/starchasers-dataserver/internal/adapter/httpapi"
	kafkaadapter "github.com/wmarcoyu/starchasers-dataserver/internal/adapter/kafka"
	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/observability"
	"github.com/wmarcoyu/starchasers-dataserver/internal/stargaze"
	"github.com/wmarcoyu/starchasers-dataserver/internal/store"
)

func main() {
	// Optional; production deployments set real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var parks stargaze.ParkDirectory
	if cfg.ParksDSN != "" {
		parkStore, err := store.OpenParks(cfg.ParksDSN, logger)
		if err != nil {
			logger.Error("parks database unavailable", "error", err)
			os.Exit(1)
		}
		defer parkStore.Close()
		parks = parkStore
	} else {
		logger.Info("parks database not configured, park lookups disabled")
	}

	var auth httpapi.Authenticator
	if cfg.UsersDSN != "" {
		userStore, err := store.OpenUsers(cfg.UsersDSN, logger)
		if err != nil {
			logger.Error("users database unavailable", "error", err)
			os.Exit(1)
		}
		defer userStore.Close()
		auth = userStore
	} else {
		logger.Warn("users database not configured, authentication disabled")
	}

	service, err := stargaze.New(cfg, parks, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	var announcer acquire.Announcer
	var announcerClose func() error
	if cfg.KafkaEnabled {
		a := kafkaadapter.NewAnnouncer(cfg, logger)
		announcer = a
		announcerClose = a.Close
		logger.Info("dataset completion announcements enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("dataset completion announcements disabled")
	}

	scheduler := acquire.New(cfg,
		acquire.NewHTTPDownloader(),
		acquire.NewCommandProcessor(cfg.ConverterCmd),
		announcer, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, service, auth, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start acquisition loop.
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("acquisition loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if announcerClose != nil {
		if err := announcerClose(); err != nil {
			logger.Error("kafka announcer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
