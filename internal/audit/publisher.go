package audit

import (
	"log/slog"
	"sync"
)

const defaultBufferSize = 1024

// Publisher is the write side of the pipeline. Publish never blocks: when the
// buffer is full the event is dropped and counted in the log, because a slow
// audit sink must not slow the request path.
type Publisher struct {
	events chan Event
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{
		events: make(chan Event, defaultBufferSize),
		logger: logger,
	}
}

// Publish enqueues an event. Events arriving after Close, as handlers still
// in flight during shutdown may produce, are dropped.
func (p *Publisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("audit publisher closed, event dropped", "action", e.Action, "entity_id", e.EntityID)
		return
	}
	select {
	case p.events <- e:
	default:
		p.logger.Warn("audit buffer full, event dropped", "action", e.Action, "entity_id", e.EntityID)
	}
}

// Events is consumed by exactly one Worker.
func (p *Publisher) Events() <-chan Event {
	return p.events
}

// Close signals the worker to drain and stop. Idempotent.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.events)
}
