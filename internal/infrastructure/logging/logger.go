package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/itmuckel/ardour/internal/infrastructure/config"
)

// Logger is slog with the core's default fields attached. Every line
// carries service and version so aggregated logs from several daemons
// stay attributable.
type Logger struct {
	*slog.Logger
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds a logger from config.yaml settings: level, json or text
// format, stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return build(out, cfg, version)
}

// Default is for early startup, before config is loaded: json to
// stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// With returns a child logger carrying extra default attributes,
// typically a component name.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func build(out io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	base := slog.New(handler).With("service", "ardour", "version", version)
	return &Logger{Logger: base}
}

// parseLevel maps a config string to a slog level, falling back to
// info for anything it does not recognise.
func parseLevel(name string) slog.Level {
	if level, ok := levelNames[strings.ToLower(name)]; ok {
		return level
	}
	return slog.LevelInfo
}
