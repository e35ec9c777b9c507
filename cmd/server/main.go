package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/transfr/transfr/internal/config"
	"github.com/transfr/transfr/internal/journeys"
	"github.com/transfr/transfr/internal/logging"
	"github.com/transfr/transfr/internal/pathfind"
	"github.com/transfr/transfr/internal/server"
	"github.com/transfr/transfr/internal/stations"
	"github.com/transfr/transfr/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	st, err := store.NewPostgres(ctx, store.Options{
		Host:            cfg.Store.Host,
		Port:            cfg.Store.Port,
		Database:        cfg.Store.Database,
		User:            cfg.Store.User,
		Password:        cfg.Store.Password,
		SSLMode:         cfg.Store.SSLMode,
		MinConns:        cfg.Store.MinConns,
		MaxConns:        cfg.Store.MaxConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	directory, err := stations.Load(cfg.Stations.CSVPath)
	if err != nil {
		logger.Error("failed to load station directory", "error", err, "path", cfg.Stations.CSVPath)
		os.Exit(1)
	}
	logger.Info("station directory loaded", "stations", directory.Len())

	finder := pathfind.NewFinder(st, logger, pathfind.Options{
		MaxRounds:       cfg.Search.MaxRounds,
		MaxFallbackHops: cfg.Search.MaxFallbackHops,
	})
	planner := journeys.NewClient(cfg.Journeys.BaseURL, cfg.Journeys.Timeout)

	apiHandlers := server.NewAPIHandlers(logger, finder, directory, planner, cfg.Search.MatrixWorkers)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealthService{Store: st},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
