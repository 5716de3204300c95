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

// Config controls the global logger.
type Config struct {
	Level         string // debug, info, warn, error
	Format        string // json, pretty
	FileEnabled   bool
	FilePath      string // directory for app.log and error.log
	RotationSize  int    // MB
	RetentionDays int
	Service       string
	Version       string
}

// Init replaces the global zerolog logger according to cfg.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writers, err := writersFor(cfg, os.Stderr)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Str("service", cfg.Service).
		Str("version", cfg.Version).
		Logger()

	log.Debug().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Bool("file_enabled", cfg.FileEnabled).
		Msg("logger initialized")
	return nil
}

func writersFor(cfg Config, console io.Writer) ([]io.Writer, error) {
	var writers []io.Writer
	if cfg.Format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"})
	} else {
		writers = append(writers, console)
	}

	if !cfg.FileEnabled {
		return writers, nil
	}
	if err := os.MkdirAll(cfg.FilePath, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	writers = append(writers, rotating(cfg, "app.log"))
	// error.log only receives error level and above
	writers = append(writers, &levelFilter{min: zerolog.ErrorLevel, w: rotating(cfg, "error.log")})
	return writers, nil
}

func rotating(cfg Config, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.FilePath, name),
		MaxSize:    cfg.RotationSize,
		MaxAge:     cfg.RetentionDays,
		MaxBackups: 10,
		Compress:   true,
	}
}

type levelFilter struct {
	min zerolog.Level
	w   io.Writer
}

func (f *levelFilter) Write(p []byte) (int, error) { return f.w.Write(p) }

func (f *levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// NewAccessLogger returns a logger writing HTTP access lines to access.log,
// or the global logger when path is empty.
func NewAccessLogger(path string, rotationSize, retentionDays int) zerolog.Logger {
	if path == "" {
		return log.Logger
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Warn().Err(err).Msg("create access log directory, using default logger")
		return log.Logger
	}
	cfg := Config{FilePath: path, RotationSize: rotationSize, RetentionDays: retentionDays}
	return zerolog.New(rotating(cfg, "access.log")).With().
		Timestamp().
		Str("type", "access").
		Logger()
}
