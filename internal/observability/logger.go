package observability

import (
	"encoding/json"
	"io"
	"log"
	"maps"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Logger writes one JSON object per line. Bound fields from With appear on
// every line; timestamp, level and message always win over field keys.
type Logger struct {
	out    *log.Logger
	fields map[string]any
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

// With returns a logger that adds fields to every line it writes.
func (l *Logger) With(fields map[string]any) *Logger {
	bound := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(bound, l.fields)
	maps.Copy(bound, fields)
	return &Logger{out: l.out, fields: bound}
}

func (l *Logger) Info(event string, fields map[string]any) {
	l.emit("info", event, fields)
}

func (l *Logger) Warn(event string, fields map[string]any) {
	l.emit("warn", event, fields)
}

// Error also leaves a breadcrumb so the next Sentry event carries it.
func (l *Logger) Error(event string, fields map[string]any) {
	l.emit("error", event, fields)
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "log",
		Message:  event,
		Level:    sentry.LevelError,
		Data:     fields,
	})
}

func (l *Logger) emit(level, event string, fields map[string]any) {
	line := make(map[string]any, len(l.fields)+len(fields)+3)
	maps.Copy(line, l.fields)
	maps.Copy(line, fields)
	line["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level
	line["message"] = event

	encoded, err := json.Marshal(line)
	if err != nil {
		l.out.Printf(`{"level":"error","message":"log line not encodable","event":%q}`, event)
		return
	}
	l.out.Println(string(encoded))
}
