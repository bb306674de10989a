package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"obesityweb/config"
	"obesityweb/db"
	qhttp "obesityweb/http"
	"obesityweb/ml"
	"obesityweb/monitoring"
)

func ServeCommand() *cobra.Command {
	var port int
	var artifactDir string
	var auditDB string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve [-p port] [-a artifactDir]",
		Short: "Loads the model artifacts and serves the prediction form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Http.Port = port
			}
			if flags.Changed("artifacts") {
				cfg.Artifacts.Dir = artifactDir
			}
			if flags.Changed("audit-db") {
				cfg.Database.Path = auditDB
			}
			if noWatch {
				cfg.Artifacts.Watch = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on, all interfaces")
	cmd.Flags().StringVarP(&artifactDir, "artifacts", "a", ".", "directory holding model.json, scaler.json and encoders.json")
	cmd.Flags().StringVarP(&auditDB, "audit-db", "", "", "sqlite file for the prediction audit trail (disabled when empty)")
	cmd.Flags().BoolVarP(&noWatch, "no-watch", "", false, "do not reload artifacts when they change on disk")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry, err := ml.NewRegistry(cfg.Artifacts.Dir, logger)
	if err != nil {
		logger.Error("cannot load model artifacts", zap.String("dir", cfg.Artifacts.Dir), zap.Error(err))
		return err
	}

	metrics := monitoring.NewInferenceMetrics(monitoring.NewMetricsCollector())
	registry.OnSwap(func(*ml.Artifacts) { metrics.RecordReload() })

	pipeline, err := ml.NewPipeline(registry, cfg.Artifacts.CacheSize)
	if err != nil {
		return err
	}

	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("prediction audit enabled", zap.String("path", cfg.Database.Path))
	}

	handlers, err := qhttp.NewHandlers(pipeline, metrics, store, logger)
	if err != nil {
		return err
	}
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:         cfg.Http.Port,
		Timeout:      cfg.Http.Timeout,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	}, handlers, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		return server.Stop()
	})
	if cfg.Artifacts.Watch {
		g.Go(func() error {
			if err := registry.Watch(ctx, cfg.Artifacts.ReloadDebounce); err != nil {
				return fmt.Errorf("watch artifacts: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("exiting")
	return nil
}
