package pubsub

import (
	"sync"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// MockNATSPubSub is an in-memory stand-in for NATSPubSub. It keeps the
// last maxMessages events so stream replay can be exercised without a server.
type MockNATSPubSub struct {
	subject     string
	local       localSubs
	mu          sync.RWMutex
	messages    []Event
	maxMessages int
}

// NewMockNATSPubSub creates a new mock NATS JetStream pub/sub
func NewMockNATSPubSub(subject string) *MockNATSPubSub {
	logger.Info("Using mock NATS pub/sub", "subject", subject)

	return &MockNATSPubSub{
		subject:     subject,
		local:       localSubs{buffer: 100},
		maxMessages: 1000,
	}
}

// Publish stores the event and delivers it to subscribers
func (p *MockNATSPubSub) Publish(event Event) {
	p.mu.Lock()
	p.messages = append(p.messages, event)
	if len(p.messages) > p.maxMessages {
		p.messages = p.messages[len(p.messages)-p.maxMessages:]
	}
	p.mu.Unlock()

	if skipped := p.local.deliver(event); skipped > 0 {
		logger.Warn("Mock NATS: Skipping slow subscribers", "event_type", event.Type, "skipped", skipped)
	}
	logger.Debug("Mock NATS: Published event", "event_type", event.Type, "owner", event.Owner)
}

// Subscribe creates a subscription channel for events
func (p *MockNATSPubSub) Subscribe() chan Event {
	ch, n := p.local.subscribe()
	logger.Debug("Mock NATS: New subscriber added", "total_subscribers", n)
	return ch
}

// Unsubscribe removes a subscription channel
func (p *MockNATSPubSub) Unsubscribe(ch chan Event) {
	if n, ok := p.local.unsubscribe(ch); ok {
		logger.Debug("Mock NATS: Subscriber removed", "remaining_subscribers", n)
	}
}

// SubscribeJetStream simulates a durable JetStream subscription
func (p *MockNATSPubSub) SubscribeJetStream(consumerName string, handler func(Event)) error {
	logger.Debug("Mock NATS: Creating durable subscription (simulated)", "consumer_name", consumerName)

	ch := p.Subscribe()
	go func() {
		for event := range ch {
			handler(event)
		}
		logger.Debug("Mock NATS: Durable subscription closed", "consumer_name", consumerName)
	}()

	return nil
}

// ReplayMessages sends up to count of the most recent stored events to ch
// whose owner matches. An empty owner replays every owner's events.
func (p *MockNATSPubSub) ReplayMessages(ch chan Event, owner string, count int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var matched []Event
	for _, event := range p.messages {
		if owner == "" || event.Owner == owner {
			matched = append(matched, event)
		}
	}
	if start := len(matched) - count; start > 0 {
		matched = matched[start:]
	}

	sent := 0
	for _, event := range matched {
		select {
		case ch <- event:
			sent++
		default:
			logger.Warn("Mock NATS: Channel full during replay, skipping event")
		}
	}
	return sent
}

// GetMessageCount returns the number of stored messages
func (p *MockNATSPubSub) GetMessageCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages)
}

// SubscriberCount returns the number of active subscribers
func (p *MockNATSPubSub) SubscriberCount() int {
	return p.local.count()
}

// Close closes all subscriptions
func (p *MockNATSPubSub) Close() {
	n := p.local.closeAll()
	logger.Info("Mock NATS: Closed all subscriptions", "closed", n)
}
