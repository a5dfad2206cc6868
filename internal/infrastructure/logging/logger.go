package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/config"
)

const serviceName = "smartlight"

// Logger is the process-wide structured logger. Every line carries the
// service name and build version; Component adds a component attribute.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml.
// Output "stderr" writes to standard error; anything else to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter is New writing to out instead of cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: utcTime,
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{slog.New(h).With("service", serviceName, "version", version)}
}

// Default is the logger used until config.yaml has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Component returns a child logger tagged component=name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With("component", name)}
}

// parseLevel accepts slog level names ("debug", "warn", "error+2"...)
// case-insensitively, plus "warning". Unknown values mean info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// utcTime renders the record timestamp in UTC with millisecond precision,
// matching the timestamps stored in the database.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	return a
}

// Discard returns a logger that drops everything, for tests and tools.
func Discard() *Logger {
	return &Logger{slog.New(slog.DiscardHandler)}
}
