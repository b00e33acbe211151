// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level         string // debug, info, warn, error
	Format        string // json, pretty
	FilePath      string // log directory, empty disables file output
	RotationSize  int    // MB
	RetentionDays int
	ServiceName   string
}

// Init initializes the global logger.
func Init(cfg Config) error {
	return InitWriter(cfg, os.Stderr)
}

// InitWriter is Init with an explicit console destination.
func InitWriter(cfg Config, out io.Writer) error {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if cfg.Format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	} else {
		writers = append(writers, out)
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(cfg.FilePath, 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		if cfg.RotationSize <= 0 {
			cfg.RotationSize = 50
		}
		if cfg.RetentionDays <= 0 {
			cfg.RetentionDays = 14
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.FilePath, "topbolsas.log"),
			MaxSize:    cfg.RotationSize,
			MaxAge:     cfg.RetentionDays,
			MaxBackups: 10,
			Compress:   true,
		})
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	log.Logger = ctx.Logger()

	log.Debug().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Bool("file_enabled", cfg.FilePath != "").
		Msg("logger initialized")
	return nil
}
