package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// StartAuditWorker subscribes an audit trail logger to every auth lifecycle
// event. Audit entries are structured log lines; shipping them elsewhere is
// a sink concern, not the worker's.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}

	audit := logger.Named("audit")
	handler := func(_ context.Context, event events.Event) error {
		audit.Info("auth event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.String("role", string(event.Role)),
			zap.Time("at", event.Timestamp),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventMemberRegistered,
		events.EventSessionStarted,
		events.EventSessionRefreshed,
		events.EventSessionEnded,
		events.EventTokenRevoked,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
