package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neurotwin-backend/application/ports"
	"neurotwin-backend/application/viewstate"
	domaincfg "neurotwin-backend/domain/config"
	"neurotwin-backend/infrastructure/config"
	"neurotwin-backend/infrastructure/persistence/sqlite"
	"neurotwin-backend/interfaces/http/rest"
	"neurotwin-backend/interfaces/http/rest/handlers"
	"neurotwin-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var restorePatient string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the visualization state HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(restorePatient)
		},
	}

	cmd.Flags().StringVar(&restorePatient, "restore-patient", "", "Replay the latest stored graph snapshot for this patient at startup")
	return cmd
}

func runServe(restorePatient string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewVisualizationMetrics(registry)

	lod, err := viewstate.NewLODPolicy(
		viewstate.DeviceClass(cfg.DeviceClass),
		viewstate.LODMode(cfg.LODMode),
	)
	if err != nil {
		return err
	}

	coordinator := viewstate.NewCoordinator(domaincfg.DefaultDomainConfig(), lod, logger, metrics)

	var snapshots ports.SnapshotStore
	if cfg.SnapshotDBPath != "" {
		store, err := sqlite.NewSnapshotStore(cfg.SnapshotDBPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()
		snapshots = store
	}

	handler := handlers.NewVisualizationHandler(coordinator, snapshots, domaincfg.DefaultDomainConfig(), logger)

	if restorePatient != "" {
		if err := handler.RestoreLatestSnapshot(context.Background(), restorePatient); err != nil {
			logger.Warn("Failed to restore snapshot", zap.String("patientID", restorePatient), zap.Error(err))
		}
	}

	// Hot-reload visualization settings when a settings file is configured
	var watcher *config.SettingsWatcher
	if cfg.SettingsPath != "" {
		watcher, err = config.NewSettingsWatcher(cfg.SettingsPath, logger)
		if err != nil {
			return fmt.Errorf("failed to start settings watcher: %w", err)
		}
		applySettings := func(s *config.VisualizationSettings) {
			if err := handler.ApplyLODSettings(s.DeviceClass, s.LODMode, s.ForcedTier); err != nil {
				logger.Warn("Ignoring invalid settings update", zap.Error(err))
			}
		}
		applySettings(watcher.Current())
		watcher.OnChange(applySettings)
		watcher.Start()
		defer watcher.Stop()
	}

	router := rest.NewRouter(handler, cfg, logger, registry)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("Server stopped")
	return nil
}
