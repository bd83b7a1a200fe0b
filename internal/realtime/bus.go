// Package realtime provides the in-process change bus behind every live
// feed. Writers publish a topic-level change signal; subscribers re-read
// their snapshot on each signal.
package realtime

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Topic helpers. One topic per live feed a consumer can hold.
func TopicConversations(userID string) string    { return "conversations:" + userID }
func TopicMessages(conversationID string) string { return "messages:" + conversationID }
func TopicSystemFeed(userID string) string       { return "notifications:system:" + userID }
func TopicInteractionFeed(userID string) string  { return "notifications:interaction:" + userID }

// Bus fans change signals out to subscriptions. Delivery is coalescing: a
// subscriber that has not drained its pending signal receives one combined
// signal, not a backlog.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		topics: make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Publish signals every active subscription on the topic. Never blocks.
func (b *Bus) Publish(topic string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[topic] {
		select {
		case sub.signals <- struct{}{}:
		default:
			// Signal already pending; the subscriber will re-read anyway.
		}
	}
}

// Subscribe creates an idle subscription on the topic. The caller must
// Start it to receive signals and Stop it when the consumer goes away.
func (b *Bus) Subscribe(topic string) *Subscription {
	return &Subscription{
		bus:     b,
		topic:   topic,
		signals: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (b *Bus) attach(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[s.topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[s.topic] = subs
	}
	subs[s] = struct{}{}
}

func (b *Bus) detach(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[s.topic]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(b.topics, s.topic)
	}
}

// Subscription states. Ad hoc boolean latches grow stale; an explicit state
// machine makes double-start and use-after-stop detectable.
type subscriptionState int

const (
	stateIdle subscriptionState = iota
	stateActive
	stateStopped
)

var (
	// ErrAlreadyActive is returned by Start on an active subscription. The
	// subscription keeps running; re-entering setup must not produce a
	// second parallel stream.
	ErrAlreadyActive = errors.New("subscription already active")

	// ErrStopped is returned by Start after Stop. Stopped subscriptions do
	// not restart; create a new one.
	ErrStopped = errors.New("subscription stopped")
)

// Subscription is an explicit handle for one live feed: created idle,
// started at most once, stopped exactly once (Stop is idempotent).
type Subscription struct {
	bus   *Bus
	topic string

	mu      sync.Mutex
	state   subscriptionState
	signals chan struct{}
	done    chan struct{}
}

// Start attaches the subscription to its topic and begins signal delivery.
func (s *Subscription) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateActive:
		return ErrAlreadyActive
	case stateStopped:
		return ErrStopped
	}
	s.state = stateActive
	s.bus.attach(s)
	return nil
}

// Stop detaches the subscription. Safe to call multiple times and on an
// idle subscription.
func (s *Subscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStopped {
		return
	}
	if s.state == stateActive {
		s.bus.detach(s)
	}
	s.state = stateStopped
	close(s.done)
}

// Signals delivers one value per pending change. Consumers treat a signal as
// "re-read your snapshot", not as a payload.
func (s *Subscription) Signals() <-chan struct{} {
	return s.signals
}

// Done is closed when the subscription stops.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Active reports whether the subscription is delivering signals.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive
}
