package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscriptionLifecycle(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe(TopicConversations("u1"))

	assert.False(t, sub.Active())

	require.NoError(t, sub.Start())
	assert.True(t, sub.Active())

	assert.ErrorIs(t, sub.Start(), ErrAlreadyActive)
	assert.True(t, sub.Active(), "failed re-start leaves the stream running")

	sub.Stop()
	assert.False(t, sub.Active())
	assert.ErrorIs(t, sub.Start(), ErrStopped)

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe(TopicMessages("c1"))
	require.NoError(t, sub.Start())

	sub.Stop()
	sub.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sub := bus.Subscribe(TopicMessages("c1"))

	sub.Stop()
	assert.ErrorIs(t, sub.Start(), ErrStopped)
}

func TestPublishSignalsActiveSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	topic := TopicSystemFeed("u1")
	sub := bus.Subscribe(topic)
	require.NoError(t, sub.Start())
	defer sub.Stop()

	bus.Publish(topic)

	select {
	case <-sub.Signals():
	case <-time.After(time.Second):
		t.Fatal("no signal delivered")
	}
}

func TestPublishCoalesces(t *testing.T) {
	bus := NewBus(zap.NewNop())
	topic := TopicInteractionFeed("u1")
	sub := bus.Subscribe(topic)
	require.NoError(t, sub.Start())
	defer sub.Stop()

	for i := 0; i < 10; i++ {
		bus.Publish(topic)
	}

	select {
	case <-sub.Signals():
	case <-time.After(time.Second):
		t.Fatal("no signal delivered")
	}
	select {
	case <-sub.Signals():
		t.Fatal("undrained publishes must collapse into one signal")
	default:
	}
}

func TestPublishSkipsIdleAndStopped(t *testing.T) {
	bus := NewBus(zap.NewNop())
	topic := TopicConversations("u1")

	idle := bus.Subscribe(topic)
	stopped := bus.Subscribe(topic)
	require.NoError(t, stopped.Start())
	stopped.Stop()

	bus.Publish(topic)

	select {
	case <-idle.Signals():
		t.Fatal("idle subscription received a signal")
	case <-stopped.Signals():
		t.Fatal("stopped subscription received a signal")
	default:
	}
}

func TestPublishUnknownTopicIsSafe(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Publish("nothing:here")
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus(zap.NewNop())
	a := bus.Subscribe(TopicConversations("u1"))
	b := bus.Subscribe(TopicConversations("u2"))
	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	defer a.Stop()
	defer b.Stop()

	bus.Publish(TopicConversations("u1"))

	select {
	case <-a.Signals():
	case <-time.After(time.Second):
		t.Fatal("no signal on published topic")
	}
	select {
	case <-b.Signals():
		t.Fatal("signal leaked across topics")
	default:
	}
}
