package audit

import (
	"context"
	"log/slog"
)

// Sink is where audit events land. Record errors are logged and the event is
// lost; delivery is best-effort end to end.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Worker drains the publisher channel into a sink.
type Worker struct {
	events <-chan Event
	sink   Sink
	logger *slog.Logger
}

func NewWorker(p *Publisher, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{events: p.Events(), sink: sink, logger: logger}
}

// Run consumes until the channel closes or ctx is cancelled. On cancellation
// it drains whatever is already buffered before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case e, ok := <-w.events:
			if !ok {
				return nil
			}
			w.record(ctx, e)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case e, ok := <-w.events:
			if !ok {
				return
			}
			w.record(context.Background(), e)
		default:
			return
		}
	}
}

func (w *Worker) record(ctx context.Context, e Event) {
	if err := w.sink.Record(ctx, e); err != nil {
		w.logger.Warn("audit record failed", "error", err, "action", e.Action)
	}
}
