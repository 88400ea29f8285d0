package shared

import "sync"

// EventKind classifies a change notification.
type EventKind string

// Change notifications published by the session store and the grant
// registry. Guards and admin screens subscribe instead of polling.
const (
	EventLogin           EventKind = "session.login"
	EventLogout          EventKind = "session.logout"
	EventSessionRefresh  EventKind = "session.refresh"
	EventRegistryChanged EventKind = "registry.changed"
	EventCatalogChanged  EventKind = "catalog.changed"
	EventUserChanged     EventKind = "user.changed"
)

// Event describes a single state change.
type Event struct {
	Kind    EventKind
	Subject *Subject
	Entity  string
}

// Notifier is a synchronous publish-subscribe registry. Subscribers run
// on the publisher's goroutine, so a published mutation is fully
// observed before the mutating call returns.
type Notifier struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// NewNotifier constructs an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers a callback and returns its cancel function.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish delivers the event to every subscriber.
func (n *Notifier) Publish(evt Event) {
	if n == nil {
		return
	}
	n.mu.RLock()
	callbacks := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		callbacks = append(callbacks, fn)
	}
	n.mu.RUnlock()
	for _, fn := range callbacks {
		fn(evt)
	}
}
