package pubsub

import "github.com/Billy-Davies-2/futdraw/internal/logger"

// Event types published by the roster, selection and draw services.
const (
	EventPlayerSaved      = "players:save"
	EventPlayerDeleted    = "players:delete"
	EventSelectionUpdated = "selection:update"
	EventDrawComplete     = "draw:complete"
	EventDrawDismissed    = "draw:dismiss"
)

// Event represents a pubsub event. Owner scopes delivery: SubscribeOwner
// channels only receive events of that owner.
type Event struct {
	Type    string                 `json:"type"`
	Owner   string                 `json:"owner"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Publisher is the write side used by services.
type Publisher interface {
	Publish(Event)
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// localBuffer is the per-subscriber channel buffer of a PubSub. Events for
// a subscriber whose buffer is full are dropped.
const localBuffer = 10

// PubSub fans events out to in-process subscribers (SSE and websocket
// streams, the image cache). With an upstream, Publish goes through the
// upstream and only events coming back from it are delivered, so every
// replica sees the same stream.
type PubSub struct {
	local    localSubs
	upstream Upstream
}

// New creates a PubSub that delivers in-process only.
func New() *PubSub {
	return &PubSub{local: localSubs{buffer: localBuffer}}
}

// NewWithUpstream creates a PubSub bridged to upstream (NATS). The
// forwarding goroutine ends when upstream closes its channel.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{local: localSubs{buffer: localBuffer}, upstream: upstream}

	ch := upstream.Subscribe()
	go func() {
		for event := range ch {
			ps.deliver(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()
	return ps
}

// Subscribe returns a channel receiving every owner's events.
func (ps *PubSub) Subscribe() chan Event {
	ch, n := ps.local.subscribe()
	logger.Debug("PubSub: New subscriber added", "total_subscribers", n)
	return ch
}

// SubscribeOwner returns a channel receiving only owner's events.
func (ps *PubSub) SubscribeOwner(owner string) chan Event {
	ch, n := ps.local.subscribeOwner(owner)
	logger.Debug("PubSub: New owner subscriber added", "owner", owner, "total_subscribers", n)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown channels
// are ignored.
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.local.unsubscribe(ch)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.local.count()
}

// Publish sends an event to the upstream when there is one, otherwise to
// local subscribers directly.
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.deliver(event)
}

func (ps *PubSub) deliver(event Event) {
	if skipped := ps.local.deliver(event); skipped > 0 {
		logger.Warn("PubSub: Dropped event for slow subscribers", "type", event.Type, "owner", event.Owner, "skipped", skipped)
	}
}
