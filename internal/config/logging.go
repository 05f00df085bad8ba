package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// NewLogger returns a text logger writing to w at the given level.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	lvl, _ := ParseLevel(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Log logs the resolved settings using the default logger
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings at debug level, masking the API key
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.DebugContext(ctx, "Config: db_path", "value", s.DBPath)
	logger.DebugContext(ctx, "Config: data_dir", "value", s.DataDir)
	if s.ConfigFile != "" {
		logger.DebugContext(ctx, "Config: config", "value", s.ConfigFile)
	}
	logger.DebugContext(ctx, "Config: llm.provider", "value", s.LLM.Provider)
	if s.LLM.Provider != ProviderNone {
		logger.DebugContext(ctx, "Config: llm.api_key", "value", mask(s.LLM.APIKey))
		if s.LLM.BaseURL != "" {
			logger.DebugContext(ctx, "Config: llm.base_url", "value", s.LLM.BaseURL)
		}
		if s.LLM.Model != "" {
			logger.DebugContext(ctx, "Config: llm.model", "value", s.LLM.Model)
		}
		logger.DebugContext(ctx, "Config: llm.timeout", "value", s.LLM.Timeout)
	}
	logger.DebugContext(ctx, "Config: extractor.flatten_command", "value", s.Extractor.FlattenCommand)
	logger.DebugContext(ctx, "Config: extractor.output_dir", "value", s.Extractor.OutputDir)
	logger.DebugContext(ctx, "Config: log.level", "value", s.Log.Level)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("db_path", s.DBPath),
		slog.String("data_dir", s.DataDir),
		slog.Group("llm",
			slog.String("provider", s.LLM.Provider),
			slog.String("api_key", mask(s.LLM.APIKey)),
			slog.String("model", s.LLM.Model),
		),
	)
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "****"
}
