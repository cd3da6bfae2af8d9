package audit

import (
	"context"
	"log/slog"

	"onward/pkg/requestcontext"
)

// ChannelEmitter queues events for background delivery. Emit never blocks
// the caller's request path: when the inbox is full the event is dropped and
// counted against the logger rather than stalling a business operation.
type ChannelEmitter struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelEmitter(inbox chan<- Event, logger *slog.Logger) *ChannelEmitter {
	return &ChannelEmitter{inbox: inbox, logger: logger}
}

func (e *ChannelEmitter) Emit(ctx context.Context, event Event) error {
	// Stamp correlation fields now; the request context is gone by the time
	// the worker drains the queue.
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	select {
	case e.inbox <- event:
		return nil
	default:
		e.logger.WarnContext(ctx, "audit inbox full, dropping event", "action", event.Action)
		return nil
	}
}

// Worker consumes audit events from a channel and forwards them to a sink.
// It keeps background processing testable without wiring queue
// implementations into services.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is canceled. Sink failures are logged and
// skipped; audit delivery at this boundary is best-effort.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed", "action", event.Action, "error", err)
			}
		}
	}
}
