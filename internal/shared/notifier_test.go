package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierPublishIsSynchronous(t *testing.T) {
	n := NewNotifier()

	var got []Event
	cancel := n.Subscribe(func(evt Event) {
		got = append(got, evt)
	})

	n.Publish(Event{Kind: EventLogin, Entity: "1"})
	// Delivery happens on the publishing goroutine.
	assert.Len(t, got, 1)
	assert.Equal(t, EventLogin, got[0].Kind)

	cancel()
	n.Publish(Event{Kind: EventLogout})
	assert.Len(t, got, 1)
}

func TestNotifierNilReceiver(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Publish(Event{Kind: EventUserChanged})
	})
}

func TestNotifierMultipleSubscribers(t *testing.T) {
	n := NewNotifier()

	a, b := 0, 0
	n.Subscribe(func(Event) { a++ })
	cancelB := n.Subscribe(func(Event) { b++ })

	n.Publish(Event{Kind: EventRegistryChanged})
	cancelB()
	n.Publish(Event{Kind: EventRegistryChanged})

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
