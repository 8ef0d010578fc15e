// Package logging provides config-driven categorized file-based logging for outreach.
// Logs are written to the configured directory with separate files per category.
// Logging is controlled by logging.debug_mode - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"outreach/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryAPI      Category = "api"      // HTTP requests to the outreach API
	CategorySearch   Category = "search"   // Task polling, results, selection, saves
	CategoryCampaign Category = "campaign" // Drafts, sends, event feed
	CategoryUI       Category = "ui"       // Dashboard navigation and rendering
	CategoryConfig   Category = "config"   // Config file watching and reloads
	CategoryAudit    Category = "audit"    // Mutating API calls (see audit.go)
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBoot, CategoryAPI, CategorySearch, CategoryCampaign, CategoryUI, CategoryConfig, CategoryAudit,
}

type sink struct {
	logger *zap.Logger
	file   *os.File
}

var (
	loggers   = make(map[Category]*sink)
	loggersMu sync.Mutex
	logsDir   string
	settings  config.LoggingConfig
	level     = zapcore.InfoLevel
	configMu  sync.RWMutex
)

// DefaultDir returns <user cache dir>/outreach/logs.
func DefaultDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "outreach", "logs")
	}
	return filepath.Join(dir, "outreach", "logs")
}

// Initialize applies cfg, closing any loggers opened under a previous
// configuration. With debug_mode off it is a silent no-op.
func Initialize(cfg config.LoggingConfig) error {
	CloseAll()

	configMu.Lock()
	settings = cfg
	logsDir = cfg.Dir
	if logsDir == "" {
		logsDir = DefaultDir()
	}
	level = parseLevel(cfg.Level)
	configMu.Unlock()

	// Only create logs directory if debug mode is enabled
	if !cfg.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== outreach logging initialized ===",
		zap.String("dir", logsDir),
		zap.String("level", level.String()),
		zap.Bool("json", cfg.JSONFormat()))
	if len(cfg.Categories) > 0 {
		enabled := 0
		for _, on := range cfg.Categories {
			if on {
				enabled++
			}
		}
		boot.Info("category filter active", zap.Int("enabled", enabled), zap.Int("configured", len(cfg.Categories)))
	} else {
		boot.Info("all categories enabled (no category filter)")
	}
	return nil
}

// Reload is Initialize under the name used by the config watcher.
func Reload(cfg config.LoggingConfig) error {
	return Initialize(cfg)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Dir returns the directory log files are written to.
func Dir() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return logsDir
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if s, ok := loggers[category]; ok {
		return s.logger
	}

	configMu.RLock()
	dir, lvl, json := logsDir, level, settings.JSONFormat()
	configMu.RUnlock()
	if dir == "" {
		return zap.NewNop()
	}

	// Create log file with date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to no-op logger
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return zap.NewNop()
	}

	core := zapcore.NewCore(newEncoder(json), zapcore.AddSync(file), lvl)
	l := zap.New(core).With(zap.String("cat", string(category)))
	loggers[category] = &sink{logger: l, file: file}
	return l
}

func newEncoder(json bool) zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	if json {
		return zapcore.NewJSONEncoder(enc)
	}
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(enc)
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, s := range loggers {
		_ = s.logger.Sync()
		s.file.Close()
	}
	loggers = make(map[Category]*sink)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Info(msg, fields...)
}

// BootWarn logs a warning to the boot category
func BootWarn(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Warn(msg, fields...)
}

// UI logs debug to the ui category
func UI(msg string, fields ...zap.Field) {
	Get(CategoryUI).Debug(msg, fields...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn(t.op+" was slow", zap.Duration("elapsed", elapsed), zap.Duration("threshold", threshold))
	} else {
		Get(t.category).Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
