// Package events defines the decode event published after every successful
// decode, carried over NATS for downstream consumers such as the graph sink.
package events

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/vinlab/vinlab/engine/domain"
	"github.com/vinlab/vinlab/pkg/natsutil"
)

// DecodedSubject carries DecodedEvent messages.
const DecodedSubject = "vinlab.decoded"

// DecodedEvent summarizes one completed decode. The full record stays in the
// cache and history; consumers that need it decode again and hit the cache.
type DecodedEvent struct {
	VIN    string        `json:"vin"`
	Make   string        `json:"make,omitempty"`
	Model  string        `json:"model,omitempty"`
	Year   string        `json:"year,omitempty"`
	Source domain.Source `json:"source"`
}

// Publisher publishes decode events over NATS.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher wraps a NATS connection.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// PublishDecoded emits a decode event. Failures are the caller's to log; the
// decode path never fails because eventing is down.
func (p *Publisher) PublishDecoded(ctx context.Context, ev DecodedEvent) error {
	return natsutil.Publish(ctx, p.nc, DecodedSubject, ev)
}

// SubscribeDecoded registers a handler for decode events.
func SubscribeDecoded(nc *nats.Conn, handler func(context.Context, DecodedEvent)) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, DecodedSubject, handler)
}
