package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/realtime"
)

type messageFixture struct {
	store        *memStore
	bus          *realtime.Bus
	messages     *MessageService
	notification *NotificationService
	conversation *Conversation
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	store := newMemStore()
	seedPair(store)
	bus := realtime.NewBus(zap.NewNop())
	resolver := newTestResolver(store)

	notifications := NewNotificationService(store, resolver, nil, bus, zap.NewNop())
	conversations := NewConversationService(store, store, store, resolver, bus, zap.NewNop())
	messages := NewMessageService(store, store, resolver, store, notifications, bus, zap.NewNop())

	conversation, err := conversations.EnsureConversation(context.Background(), "u1", &Contact{
		AccountID: "u2", Name: "Al Hilal", Type: AccountTypeClub,
	})
	require.NoError(t, err)

	return &messageFixture{
		store:        store,
		bus:          bus,
		messages:     messages,
		notification: notifications,
		conversation: conversation,
	}
}

func TestSendMessageAppendsAndAdvancesSummary(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	first, err := f.messages.Send(ctx, f.conversation.ID, "u1", "hi")
	require.NoError(t, err)
	second, err := f.messages.Send(ctx, f.conversation.ID, "u2", "there")
	require.NoError(t, err)

	assert.Equal(t, "u2", first.ReceiverID)
	assert.Equal(t, "Omar", first.SenderName)
	assert.Equal(t, "Al Hilal", first.ReceiverName)
	assert.Equal(t, DeliverySent, first.DeliveryStatus)
	assert.Equal(t, MessageTypeText, first.MessageType)

	assert.Equal(t, "u1", second.ReceiverID)

	stored, err := f.messages.ListMessages(ctx, f.conversation.ID, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "hi", stored[0].Body)
	assert.Equal(t, "there", stored[1].Body)

	assert.Equal(t, "there", f.conversation.LastMessage)
	assert.Equal(t, "u2", f.conversation.LastSenderID)
	// u2's first send bumped u1; u1's earlier send bumped u2.
	assert.Equal(t, 1, f.conversation.UnreadCount["u1"])
	assert.Equal(t, 1, f.conversation.UnreadCount["u2"])
}

func TestSendMessageTrimsAndRejectsEmpty(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, f.conversation.ID, "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	message, err := f.messages.Send(ctx, f.conversation.ID, "u1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", message.Body)
}

func TestSendMessageNonParticipant(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.messages.Send(context.Background(), f.conversation.ID, "intruder", "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSendMessageMissingConversation(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.messages.Send(context.Background(), "nope", "u1", "hi")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendMessageNotifiesReceiver(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.messages.Send(context.Background(), f.conversation.ID, "u1", "hi")
	require.NoError(t, err)

	// Notification production is asynchronous.
	require.Eventually(t, func() bool {
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		return len(f.store.interactions) == 1
	}, time.Second, 10*time.Millisecond)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, n := range f.store.interactions {
		assert.Equal(t, "u2", n.UserID)
		assert.Equal(t, "رسالة جديدة", n.Title)
		assert.Equal(t, ActionMessageSent, n.ActionType)
		assert.Equal(t, "u1", n.SenderID)
		assert.Equal(t, "/dashboard/player/profile/u1", n.Link)
	}
}

func TestListMessagesChecksParticipant(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.messages.ListMessages(context.Background(), f.conversation.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMessageWatchStreamsInOrder(t *testing.T) {
	f := newMessageFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch, err := f.messages.Watch(ctx, f.conversation.ID, "u2")
	require.NoError(t, err)
	defer watch.Stop()

	select {
	case snapshot := <-watch.Updates():
		assert.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = f.messages.Send(ctx, f.conversation.ID, "u1", "hi")
	require.NoError(t, err)

	var got []*Message
	require.Eventually(t, func() bool {
		select {
		case got = <-watch.Updates():
		default:
		}
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "hi", got[0].Body)
}

func TestMessageWatchDoneClosesOnStop(t *testing.T) {
	f := newMessageFixture(t)

	watch, err := f.messages.Watch(context.Background(), f.conversation.ID, "u1")
	require.NoError(t, err)

	select {
	case <-watch.Done():
		t.Fatal("Done closed before Stop")
	default:
	}

	watch.Stop()

	select {
	case <-watch.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestMessageWatchRejectsNonParticipant(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.messages.Watch(context.Background(), f.conversation.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMessageWatchBackfillsSenderAvatar(t *testing.T) {
	f := newMessageFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A stored message without a sender avatar, viewed by its receiver.
	f.store.mu.Lock()
	f.store.messages[f.conversation.ID] = []*Message{{
		ID: "m1", ConversationID: f.conversation.ID,
		SenderID: "u1", ReceiverID: "u2",
		SenderType: AccountTypePlayer,
		Body:       "hi", Timestamp: time.Now().UTC(),
	}}
	f.store.avatars["player:u1"] = "https://cdn/u1.png"
	f.store.mu.Unlock()

	watch, err := f.messages.Watch(ctx, f.conversation.ID, "u2")
	require.NoError(t, err)
	defer watch.Stop()

	require.Eventually(t, func() bool {
		select {
		case snapshot := <-watch.Updates():
			return len(snapshot) == 1 && snapshot[0].SenderAvatar == "https://cdn/u1.png"
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// The backfill also persisted the avatar.
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	assert.Equal(t, "https://cdn/u1.png", f.store.messages[f.conversation.ID][0].SenderAvatar)
}

func TestSortMessagesAscending(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []*Message{
		{ID: "late", Timestamp: base.Add(time.Minute)},
		{ID: "early", Timestamp: base},
	}

	SortMessages(messages)

	assert.Equal(t, "early", messages[0].ID)
	assert.Equal(t, "late", messages[1].ID)
}
