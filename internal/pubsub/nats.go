package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// Stream defaults shared by the external and embedded servers.
const (
	DefaultSubject    = "futdraw.events"
	DefaultStreamName = "FUTDRAW_EVENTS"
)

// NATSPubSub implements pub/sub using NATS JetStream. Every instance
// subscribes to the subject, so an event published by one replica reaches
// the local subscribers of all replicas.
type NATSPubSub struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	local   localSubs
}

// NewNATSPubSub creates a new NATS JetStream pub/sub
func NewNATSPubSub(natsURL, subject, streamName string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("futdraw"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Events are kept for a day so late consumers can replay recent draws
	ps, err := newJetStreamPubSub(nc, subject, streamName, nats.FileStorage, 24*time.Hour)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return ps, nil
}

func newJetStreamPubSub(nc *nats.Conn, subject, streamName string, storage nats.StorageType, maxAge time.Duration) (*NATSPubSub, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if streamName == "" {
		streamName = DefaultStreamName
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Create the stream unless it already exists
	if _, err := js.StreamInfo(streamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  storage,
			MaxAge:   maxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		logger.Info("JetStream stream created", "stream", streamName, "subject", subject)
	}

	ps := &NATSPubSub{
		nc:      nc,
		js:      js,
		subject: subject,
		local:   localSubs{buffer: 100},
	}

	ps.sub, err = js.Subscribe(subject, ps.handleMsg, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to JetStream: %w", err)
	}
	logger.Debug("Subscribed to JetStream", "subject", subject)

	return ps, nil
}

func (p *NATSPubSub) handleMsg(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		_ = msg.Term()
		return
	}

	if skipped := p.local.deliver(event); skipped > 0 {
		logger.Warn("NATS: Skipping slow subscribers", "event_type", event.Type, "skipped", skipped)
	}
	_ = msg.Ack()
}

// Publish publishes an event to NATS JetStream. Local subscribers receive it
// through the stream subscription.
func (p *NATSPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err := p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, "event_type", event.Type)
		return
	}

	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	ch, n := p.local.subscribe()
	logger.Debug("NATS: New subscriber added", "total_subscribers", n)
	return ch
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	if n, ok := p.local.unsubscribe(ch); ok {
		logger.Debug("NATS: Subscriber removed", "remaining_subscribers", n)
	}
}

// SubscribeJetStream creates a durable queue subscription named consumerName.
// Instances sharing consumerName split the work between them.
func (p *NATSPubSub) SubscribeJetStream(consumerName string, handler func(Event)) error {
	_, err := p.js.QueueSubscribe(p.subject, consumerName, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			_ = msg.Nak()
			return
		}

		handler(event)
		_ = msg.Ack()
	}, nats.ManualAck())

	return err
}

// SubscriberCount returns the number of active local subscribers
func (p *NATSPubSub) SubscriberCount() int {
	return p.local.count()
}

// Healthy reports whether the NATS connection is up.
func (p *NATSPubSub) Healthy() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	p.local.closeAll()

	if p.nc != nil {
		p.nc.Close()
	}
}
