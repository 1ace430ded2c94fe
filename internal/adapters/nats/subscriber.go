package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRunCompleted delivers run summaries, starting with the last one
// already in the stream.
func (s *Subscriber) SubscribeRunCompleted(ctx context.Context, handler func(ctx context.Context, summary domain.RunSummary) error) error {
	sub, err := s.js.Subscribe(SubjectCompleted, func(msg *nats.Msg) {
		var summary domain.RunSummary
		if err := json.Unmarshal(msg.Data, &summary); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, summary); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverLastPerSubject(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

// Conn exposes the underlying connection for readiness checks.
func (s *Subscriber) Conn() *nats.Conn {
	return s.conn
}
