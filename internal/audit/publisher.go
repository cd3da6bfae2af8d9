package audit

import (
	"context"
	"sync"

	"onward/pkg/requestcontext"
)

//go:generate mockgen -source=models.go -destination=mocks/emitter_mock.go -package=mocks Emitter

// Publisher emits audit events synchronously through a sink. It stamps the
// timestamp and request correlation fields so call sites stay terse.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	return p.sink.Append(ctx, event)
}

// MemorySink collects events in memory for tests and single-process dev runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
