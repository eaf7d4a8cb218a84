package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus[string]("test", nil)

	a := bus.Subscribe(4)
	b := bus.Subscribe(4)
	assert.Equal(t, 2, bus.SubscriberCount())
	assert.NotEqual(t, a.ID, b.ID)

	bus.Publish("hello")

	assert.Equal(t, "hello", <-a.Events)
	assert.Equal(t, "hello", <-b.Events)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus[int]("test", nil)
	sub := bus.Subscribe(1)

	bus.Publish(1)
	bus.Publish(2)

	assert.Equal(t, 1, <-sub.Events)
	select {
	case v := <-sub.Events:
		t.Fatalf("unexpected event %d", v)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus[int]("test", nil)
	sub := bus.Subscribe(1)

	bus.Unsubscribe(sub.ID)
	bus.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok)
	assert.Zero(t, bus.SubscriberCount())

	// Publishing with no subscribers is a no-op.
	bus.Publish(1)
}

func TestBus_Close(t *testing.T) {
	bus := NewBus[int]("test", nil)
	sub := bus.Subscribe(1)

	bus.Close()
	bus.Close()

	_, ok := <-sub.Events
	assert.False(t, ok)

	late := bus.Subscribe(1)
	_, ok = <-late.Events
	require.False(t, ok)
}
