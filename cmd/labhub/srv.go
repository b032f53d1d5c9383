package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"labhub/internal/config"
	"labhub/internal/mediastore"
	"labhub/internal/metrics"
	"labhub/internal/qrcode"
	"labhub/internal/server"
	"labhub/internal/store"
)

const qrDirName = "lab_qr"

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the labhub API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBTarget() == "" {
				return fmt.Errorf("db target is required for driver %s", cfg.DBDriver)
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "driver", cfg.DBDriver)
			st, err := store.OpenDriver(cfg.DBDriver, cfg.DBTarget())
			if err != nil {
				return err
			}
			defer st.Close()

			opts, err := serverOptions(cfg, st, logger)
			if err != nil {
				return err
			}
			return server.New(addr, opts).ListenAndServe()
		},
	}
}

// serverOptions builds the media store, QR generator and metrics the server runs with.
func serverOptions(cfg *config.Config, st server.Store, logger *slog.Logger) (server.Options, error) {
	media, err := mediastore.NewLocal(cfg.Media.DataDir, cfg.Media.PublicBaseURL)
	if err != nil {
		return server.Options{}, err
	}
	qr, err := qrcode.NewGenerator(filepath.Join(cfg.Media.DataDir, qrDirName), 0)
	if err != nil {
		return server.Options{}, err
	}
	m, err := metrics.New()
	if err != nil {
		return server.Options{}, fmt.Errorf("metrics: %w", err)
	}

	logger.Info("media storage ready", "root", media.Root(), "public_base_url", cfg.Media.PublicBaseURL)
	return server.Options{
		Store:   st,
		Media:   media,
		QR:      qr,
		Metrics: m,
		Logger:  logger,
		Uploads: server.UploadPolicy{
			MaxBodyBytes:       cfg.Media.MaxUploadBytes,
			MultipartMaxMemory: cfg.Media.MultipartMaxMemory,
			MaxImages:          cfg.Media.MaxImages,
			AllowedMediaTypes:  cfg.Media.AllowedMediaTypes,
		},
		SessionTTL: cfg.SessionTTL(),
	}, nil
}
