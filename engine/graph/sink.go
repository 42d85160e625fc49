package graph

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/vinlab/vinlab/engine/events"
)

// Sink subscribes to decode events and persists them into the graph. It runs
// off the decode path: a slow or unavailable Neo4j never delays a decode.
type Sink struct {
	store  *GraphStore
	logger *slog.Logger
	sub    *nats.Subscription
}

// NewSink creates a Sink over the given store.
func NewSink(store *GraphStore, logger *slog.Logger) *Sink {
	return &Sink{store: store, logger: logger}
}

// Start subscribes to decode events on the given NATS connection.
func (s *Sink) Start(nc *nats.Conn) error {
	sub, err := events.SubscribeDecoded(nc, func(ctx context.Context, ev events.DecodedEvent) {
		if ev.Make == "" && ev.Model == "" {
			return // nothing worth graphing
		}
		if err := s.store.SaveDecoded(ctx, ev.VIN, ev.Make, ev.Model, ev.Year); err != nil {
			s.logger.Warn("graph save failed", "vin", ev.VIN, "err", err)
		}
	})
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Stop unsubscribes from decode events.
func (s *Sink) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}
