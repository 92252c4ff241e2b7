// Package log provides structured logging for iconlens.
// It writes category-tagged key=value lines to a file (or any writer) and
// fans every line out to pubsub listeners.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/iconlens/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a flag value to a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatConfig   Category = "config"   // Configuration loading/saving
	CatPattern  Category = "pattern"  // Token pattern compilation
	CatCatalog  Category = "catalog"  // Icon set resolution across tiers
	CatStore    Category = "store"    // Durable cache operations
	CatFetch    Category = "fetch"    // Network and file fetches
	CatRender   Category = "render"   // Data URL generation
	CatCache    Category = "cache"    // In-memory cache operations
	CatWatcher  Category = "watcher"  // File watcher events
	CatLSP      Category = "lsp"      // Language server protocol traffic
	CatAnnotate Category = "annotate" // Decoration scans
	CatCustom   Category = "custom"   // Custom collections and alias files
)

// sink is where formatted lines go. A nil sink drops everything.
type sink struct {
	mu       sync.Mutex
	w        io.Writer
	minLevel Level
	broker   *pubsub.Broker[string]
}

var (
	currentMu sync.RWMutex
	current   *sink
)

func install(w io.Writer, level Level) {
	currentMu.Lock()
	current = &sink{w: w, minLevel: level, broker: pubsub.NewBroker[string]()}
	currentMu.Unlock()
}

func active() *sink {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// InitWithTeaLog opens path through tea.LogToFile and logs to it at level.
// The language server uses this because stdout carries protocol frames.
func InitWithTeaLog(path, prefix string, level Level) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	install(f, level)
	return func() {
		Reset()
		_ = f.Close()
	}, nil
}

// InitWriter routes log output to w. Used by the CLI --debug flag and tests.
func InitWriter(w io.Writer, level Level) {
	install(w, level)
}

// Reset discards the current destination; later calls log nowhere.
func Reset() {
	currentMu.Lock()
	current = nil
	currentMu.Unlock()
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	errText := "<nil>"
	if err != nil {
		errText = err.Error()
	}
	write(LevelError, cat, msg, append(fields, "error", errText))
}

func write(level Level, cat Category, msg string, fields []any) {
	s := active()
	if s == nil || level < s.minLevel {
		return
	}
	entry := formatEntry(time.Now(), level, cat, msg, fields)

	s.mu.Lock()
	_, _ = io.WriteString(s.w, entry)
	s.mu.Unlock()
	s.broker.Publish(pubsub.CreatedEvent, entry)
}

// formatEntry renders one line:
//
//	2025-12-06T10:45:00 [ERROR] [catalog] message key=value key2=value2
func formatEntry(at time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", at.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[string]

// NewListener subscribes to log lines. The subscription is closed when ctx
// is cancelled. Returns nil if no destination is installed.
func NewListener(ctx context.Context) <-chan LogEvent {
	s := active()
	if s == nil {
		return nil
	}
	return s.broker.Subscribe(ctx)
}
