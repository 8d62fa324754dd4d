package pubsub

import "sync"

type subscriber struct {
	ch    chan Event
	owner string // empty receives every owner's events
}

// localSubs is the in-process subscriber list shared by every PubSub
// implementation.
type localSubs struct {
	mu          sync.RWMutex
	subscribers []subscriber
	buffer      int
}

func (l *localSubs) subscribe() (chan Event, int) {
	return l.subscribeOwner("")
}

func (l *localSubs) subscribeOwner(owner string) (chan Event, int) {
	ch := make(chan Event, l.buffer)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, subscriber{ch: ch, owner: owner})
	return ch, len(l.subscribers)
}

// unsubscribe removes and closes ch. It reports the remaining count and
// whether ch was found.
func (l *localSubs) unsubscribe(ch chan Event) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, sub := range l.subscribers {
		if sub.ch == ch {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			close(ch)
			return len(l.subscribers), true
		}
	}
	return len(l.subscribers), false
}

// deliver performs non-blocking sends and returns how many subscribers were
// skipped because their buffer was full. The read lock is held across the
// sends so unsubscribe cannot close a channel mid-delivery.
func (l *localSubs) deliver(event Event) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	skipped := 0
	for _, sub := range l.subscribers {
		if sub.owner != "" && sub.owner != event.Owner {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			skipped++
		}
	}
	return skipped
}

func (l *localSubs) closeAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.subscribers)
	for _, sub := range l.subscribers {
		close(sub.ch)
	}
	l.subscribers = nil
	return n
}

func (l *localSubs) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subscribers)
}
