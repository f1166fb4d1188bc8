package events

import (
	"context"
	"log/slog"
)

// ChannelPublisher decouples emission from delivery: Publish enqueues without
// blocking protocol operations, Worker drains to the real sink.
type ChannelPublisher struct {
	inbox chan Event
	log   *slog.Logger
}

func NewChannelPublisher(buffer int, log *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer), log: log}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Dropping beats blocking a withdrawal on a slow broker.
		p.log.Warn("event inbox full, dropping event", "type", string(event.Type))
		return nil
	}
}

// Worker consumes queued events and forwards them to a sink.
type Worker struct {
	source *ChannelPublisher
	sink   Publisher
	log    *slog.Logger
}

func NewWorker(source *ChannelPublisher, sink Publisher, log *slog.Logger) *Worker {
	return &Worker{source: source, sink: sink, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.source.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.log.Error("publish event", "type", string(event.Type), "error", err)
			}
		}
	}
}
