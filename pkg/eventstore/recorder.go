package eventstore

import (
	"context"
	"log/slog"
)

// Recorder appends audit events after the state they describe has been saved.
// Append failures are logged, never returned: the audit trail must not roll
// back a committed change. A Recorder with a nil Store records nothing.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record appends one event as version of the aggregate identified by key.
func (r *Recorder) Record(ctx context.Context, aggregateType string, key any, version int, eventType string, data interface{}) {
	if r == nil || r.store == nil {
		return
	}
	event, err := NewEvent(eventType, data)
	if err != nil {
		r.logger.WarnContext(ctx, "audit event not encoded", "aggregate", aggregateType, "key", key, "event", eventType, "error", err)
		return
	}
	aggregateID := AggregateID(aggregateType, key)
	if err := r.store.AppendEvents(ctx, aggregateID, aggregateType, version-1, []Event{event}); err != nil {
		r.logger.WarnContext(ctx, "audit event not appended", "aggregate", aggregateType, "key", key, "event", eventType, "version", version, "error", err)
	}
}

// History replays every event recorded for the aggregate, oldest first.
func (r *Recorder) History(ctx context.Context, aggregateType string, key any) ([]Event, error) {
	if r == nil || r.store == nil {
		return []Event{}, nil
	}
	return r.store.LoadEvents(ctx, AggregateID(aggregateType, key), 0, 0)
}
