package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aerosim/pkg/config"
	"aerosim/pkg/model"
)

// LevelTrace is accepted in the server level setting. It logs at DEBUG and turns on per-tick tracing.
const LevelTrace = "TRACE"

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init sets up the server, request and event logs. Files from the previous run are kept as .old.
// The returned cleanup closes every file it opened.
func Init(cfg *config.LogConfig) (func(), error) {
	rotate(cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path)

	serverLevel, trace := ParseLevel(cfg.Server.Level)
	SetTrace(trace)

	serverHandler, serverFile, err := setupHandler(cfg.Server.Path, serverLevel, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}

	requestLevel, _ := ParseLevel(cfg.Requests.Level)
	requestHandler, requestFile, err := setupHandler(cfg.Requests.Path, requestLevel, false)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	slog.SetDefault(slog.New(serverHandler))
	RequestLogger = slog.New(requestHandler)
	SetEventLogPath(cfg.Events.Path)

	return func() {
		SetEventLogPath("")
		requestFile.Close()
		serverFile.Close()
	}, nil
}

// ParseLevel maps a level name to a slog level. Unknown names are INFO. trace is true for TRACE.
func ParseLevel(s string) (level slog.Level, trace bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case LevelTrace:
		return slog.LevelDebug, true
	case "DEBUG":
		return slog.LevelDebug, false
	case "WARN":
		return slog.LevelWarn, false
	case "ERROR":
		return slog.LevelError, false
	default:
		return slog.LevelInfo, false
	}
}

// setupHandler opens path for appending. With console set the handler also writes to stdout and the
// API capture, both at INFO and up.
func setupHandler(path string, level slog.Level, console bool) (slog.Handler, *os.File, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, nil, err
	}

	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	if !console {
		return fileHandler, file, nil
	}

	consoleLevel := max(level, slog.LevelInfo)
	return fanout{
		fileHandler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel}),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}, file, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. A failing handler does not starve the others.
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// rotate renames each existing file to path.old, replacing an older one.
func rotate(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		old := p + ".old"
		_ = os.Remove(old)
		_ = os.Rename(p, old)
	}
}

// eventLog is the flight event file. It is opened on the first event and held until the path changes.
var eventLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// SetEventLogPath configures the event log file. An empty path disables it.
func SetEventLogPath(path string) {
	eventLog.mu.Lock()
	defer eventLog.mu.Unlock()
	if eventLog.file != nil {
		eventLog.file.Close()
		eventLog.file = nil
	}
	eventLog.path = path
}

// FormatEvent renders one event log line: [2006-01-02 15:04:05] [type] Title - Summary
func FormatEvent(event *model.FlightEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), event.Type, event.Title)
	if event.Summary != "" {
		line += " - " + event.Summary
	}
	return line
}

// LogEvent appends a flight event to the event log and the API capture.
func LogEvent(event *model.FlightEvent) {
	line := FormatEvent(event)
	_, _ = GlobalEventCapture.Write([]byte(line))

	eventLog.mu.Lock()
	defer eventLog.mu.Unlock()
	if eventLog.path == "" {
		return
	}
	if eventLog.file == nil {
		f, err := openAppend(eventLog.path)
		if err != nil {
			slog.Error("failed to open event log", "path", eventLog.path, "error", err)
			return
		}
		eventLog.file = f
	}
	if _, err := eventLog.file.WriteString(line + "\n"); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
}
