package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// scrubbedHeaders never leave the process: bearer session tokens and the
// admin/cron credentials all travel in Authorization.
var scrubbedHeaders = []string{"Authorization", "Cookie"}

func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	for _, name := range scrubbedHeaders {
		if _, ok := event.Request.Headers[name]; ok {
			event.Request.Headers[name] = "[redacted]"
		}
	}
	event.Request.Data = ""
	return event
}
