package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultListenAddr   = ":8080"
	defaultExecutorAddr = ":8090"
	defaultDBPath       = "augur.db"

	envListenAddr   = "AUGUR_LISTEN_ADDR"
	envExecutorAddr = "AUGUR_EXECUTOR_ADDR"
	envDBPath       = "AUGUR_DB_PATH"
	envLogLevel     = "AUGUR_LOG_LEVEL"
	envRegistryURL  = "AUGUR_REGISTRY_URL"
	envServiceHost  = "AUGUR_ML_SERVICE_HOST"
	envServicePort  = "AUGUR_ML_SERVICE_PORT"
)

// Config holds application configuration loaded from environment variables.
// It is assembled once at process start and passed in by the caller; nothing
// deeper in the codebase reads the environment directly.
type Config struct {
	ListenAddr   string
	ExecutorAddr string
	DBPath       string
	LogLevel     slog.Level

	// RegistryURL is the base address of the service registry used to
	// discover remote execution services. Empty means discovery is skipped
	// entirely and the deployment runs fully local.
	RegistryURL string

	// ServiceHost and ServicePort describe a static remote execution
	// service, used as a fallback when discovery yields nothing. Both must
	// be set for the fallback to apply.
	ServiceHost string
	ServicePort int
}

// HasServiceFallback reports whether a static remote execution endpoint is
// configured.
func (c Config) HasServiceFallback() bool {
	return c.ServiceHost != "" && c.ServicePort > 0
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:   defaultListenAddr,
		ExecutorAddr: defaultExecutorAddr,
		DBPath:       defaultDBPath,
		LogLevel:     slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envExecutorAddr); v != "" {
		cfg.ExecutorAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envRegistryURL); v != "" {
		cfg.RegistryURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(envServiceHost); v != "" {
		cfg.ServiceHost = v
	}
	if v := os.Getenv(envServicePort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.ServicePort = port
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
