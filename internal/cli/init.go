// Package cli wires configuration, logging and the store into the halya
// commands.
package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"halya/internal/backend"
	"halya/internal/config"
	"halya/internal/core"
	"halya/internal/log"
)

// LoadEnvFile loads environment variables from path, or .env when path is
// empty. A missing default file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(path)
}

// SetupLogger builds the application logger from the configuration and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer, debug bool) *log.Logger {
	level := cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it. The data
// backend settings are checked only when withStore is set.
func LoadAndValidateConfig(path string, withStore bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	validate := cfg.ValidateSettings
	if withStore {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore creates the configured backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bc)
}

// LoadClassifier returns the configured category rules, or the defaults.
func LoadClassifier(cfg *config.Config) (*core.Classifier, error) {
	return core.LoadRulesFile(cfg.CategoryRulesFile)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
