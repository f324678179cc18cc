package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"merot-portal/internal/annotation"
	"merot-portal/internal/auth"
	"merot-portal/internal/storage"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type ExportConfig struct {
	Bucket   string `env:"EXPORT_BUCKET" envDefault:"merot-analytics"`
	LocalDir string `env:"EXPORT_LOCAL_DIR"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

// PortalConfig configures the command line client.
type PortalConfig struct {
	APIURL       string        `env:"MEROT_API_URL" envDefault:"http://localhost:8000/api/v1"`
	StateDir     string        `env:"MEROT_STATE_DIR"`
	Namespace    string        `env:"MEROT_NAMESPACE" envDefault:"employee"`
	PollInterval time.Duration `env:"MEROT_POLL_INTERVAL" envDefault:"30s"`
	Display      string        `env:"MEROT_DISPLAY" envDefault:"1280x720"`

	Export ExportConfig
}

// DevAPIConfig configures the local development server.
type DevAPIConfig struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"./merot-dev/merot.db"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Port        int    `env:"PORT" envDefault:"8000"`
	Seed        bool   `env:"SEED" envDefault:"false"`
}

func LoadPortalConfig() (PortalConfig, error) {
	var cfg PortalConfig
	if err := env.Parse(&cfg); err != nil {
		return PortalConfig{}, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return PortalConfig{}, fmt.Errorf("error locating config dir, set MEROT_STATE_DIR: %w", err)
		}
		cfg.StateDir = filepath.Join(dir, "merot")
	}

	if _, err := auth.ParseNamespace(cfg.Namespace); err != nil {
		return PortalConfig{}, err
	}

	return cfg, nil
}

func LoadDevAPIConfig() (DevAPIConfig, error) {
	var cfg DevAPIConfig
	if err := env.Parse(&cfg); err != nil {
		return DevAPIConfig{}, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// DisplaySize parses MEROT_DISPLAY, formatted as WIDTHxHEIGHT in pixels.
func (c PortalConfig) DisplaySize() (annotation.Size, error) {
	invalid := fmt.Errorf("invalid display size %q, expected WIDTHxHEIGHT", c.Display)

	width, height, ok := strings.Cut(c.Display, "x")
	if !ok {
		return annotation.Size{}, invalid
	}
	w, err := strconv.Atoi(width)
	if err != nil || w <= 0 {
		return annotation.Size{}, invalid
	}
	h, err := strconv.Atoi(height)
	if err != nil || h <= 0 {
		return annotation.Size{}, invalid
	}
	return annotation.Size{Width: float64(w), Height: float64(h)}, nil
}

var ErrNoExportStorage = errors.New("no export storage configured, set EXPORT_LOCAL_DIR or S3_ENDPOINT_URL")

// Provider returns the storage provider exports are written to. A local
// directory takes precedence over S3.
func (c ExportConfig) Provider(ctx context.Context) (storage.Provider, error) {
	if c.LocalDir != "" {
		slog.Info("writing exports to local directory", "dir", c.LocalDir)
		return storage.NewLocalProvider(c.LocalDir), nil
	}

	if c.S3EndpointURL == "" && c.S3AccessKeyID == "" {
		return nil, ErrNoExportStorage
	}

	if c.S3EndpointURL != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}

	return storage.NewS3Provider(ctx, storage.S3ProviderConfig{
		S3EndpointURL:     c.S3EndpointURL,
		S3AccessKeyID:     c.S3AccessKeyID,
		S3SecretAccessKey: c.S3SecretAccessKey,
		S3Region:          c.S3Region,
	})
}
