// Package observability provides structured logging, metrics collection,
// and health checks for keystone.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat specifies the output format for logs.
type LogFormat string

const (
	// LogFormatText outputs human-readable text logs.
	LogFormatText LogFormat = "text"
	// LogFormatJSON outputs one JSON object per record.
	LogFormatJSON LogFormat = "json"
)

// LogConfig configures the logger.
type LogConfig struct {
	Level     slog.Level
	Format    LogFormat
	Output    io.Writer // defaults to os.Stderr
	AddSource bool

	// ServiceName and ServiceVersion are added to every record when set.
	ServiceName    string
	ServiceVersion string
}

// LogConfigFor builds the logger configuration for an application environment.
// Production logs JSON with source locations; level and format override the
// environment defaults when set. An unknown level falls back to info.
func LogConfigFor(appEnv, level, format string) LogConfig {
	cfg := LogConfig{
		Level:          slog.LevelInfo,
		Format:         LogFormatText,
		ServiceName:    "keystone",
		ServiceVersion: "dev",
	}
	if appEnv == "production" {
		cfg.Format = LogFormatJSON
		cfg.AddSource = true
		cfg.ServiceVersion = "unknown"
	}
	if level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = l
		}
	}
	if format != "" {
		cfg.Format = LogFormat(strings.ToLower(format))
	}
	return cfg
}

// NewLogger creates a structured logger. Records logged with a context carry
// the correlation and unit of work ids stored in it.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.Format == LogFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	}

	var attrs []slog.Attr
	if cfg.ServiceName != "" {
		attrs = append(attrs, slog.String("service", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", cfg.ServiceVersion))
	}
	return slog.New(&attributeHandler{handler: handler, attrs: attrs})
}

// attributeHandler adds fixed attributes and context ids to every record.
type attributeHandler struct {
	handler slog.Handler
	attrs   []slog.Attr
}

func (h *attributeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *attributeHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	if id := UnitOfWorkIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(UnitOfWorkIDKey, id))
	}
	return h.handler.Handle(ctx, r)
}

func (h *attributeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attributeHandler{handler: h.handler.WithAttrs(attrs), attrs: h.attrs}
}

func (h *attributeHandler) WithGroup(name string) slog.Handler {
	return &attributeHandler{handler: h.handler.WithGroup(name), attrs: h.attrs}
}

// LogOperation creates a logger with operation-specific attributes.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) *slog.Logger {
	return logger.With(append([]any{"operation", operation}, attrs...)...)
}
