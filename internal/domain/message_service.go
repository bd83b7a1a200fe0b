package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/realtime"
)

// MessageService appends messages and streams a conversation's messages.
type MessageService struct {
	messages      MessageRepository
	conversations ConversationRepository
	resolver      *IdentityResolver
	avatars       AvatarStore
	notifications *NotificationService
	bus           *realtime.Bus
	logger        *zap.Logger
}

func NewMessageService(
	messages MessageRepository,
	conversations ConversationRepository,
	resolver *IdentityResolver,
	avatars AvatarStore,
	notifications *NotificationService,
	bus *realtime.Bus,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		resolver:      resolver,
		avatars:       avatars,
		notifications: notifications,
		bus:           bus,
		logger:        logger,
	}
}

// Send appends a message and then advances the parent conversation summary.
// The two writes are not atomic: a crash in between leaves the message
// visible with a stale summary, which self-heals on the next send. A send
// failure is returned to the caller; the input is theirs to retry.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, text string) (*Message, error) {
	if senderID == "" {
		return nil, ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	receiverID := conversation.OtherParticipant(senderID)

	now := time.Now().UTC()
	message := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		SenderName:     conversation.ParticipantNames[senderID],
		ReceiverName:   conversation.ParticipantNames[receiverID],
		SenderType:     conversation.ParticipantTypes[senderID],
		ReceiverType:   conversation.ParticipantTypes[receiverID],
		Body:           text,
		Timestamp:      now,
		MessageType:    MessageTypeText,
		SenderAvatar:   conversation.ParticipantAvatars[senderID],
		DeliveryStatus: DeliverySent,
	}

	if err := s.messages.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if err := s.conversations.UpdateSummary(ctx, conversationID, text, senderID, receiverID, now); err != nil {
		// The message is already stored; the summary catches up on the
		// next send. Log and carry on.
		s.logger.Warn("conversation summary update failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	s.bus.Publish(realtime.TopicMessages(conversationID))
	s.bus.Publish(realtime.TopicConversations(senderID))
	s.bus.Publish(realtime.TopicConversations(receiverID))

	if s.notifications != nil {
		go s.notifyReceiver(message)
	}
	return message, nil
}

// notifyReceiver produces the message_sent interaction notification off the
// send path.
func (s *MessageService) notifyReceiver(message *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.notifications.CreateInteraction(ctx, &Notification{
		UserID:     message.ReceiverID,
		Title:      "رسالة جديدة",
		Message:    fmt.Sprintf("%s أرسل لك رسالة", message.SenderName),
		ActionType: ActionMessageSent,
		SenderID:   message.SenderID,
		Link:       ProfileLink(message.SenderType, message.SenderID),
	})
	if err != nil {
		s.logger.Warn("message notification failed",
			zap.String("receiver_id", message.ReceiverID),
			zap.Error(err),
		)
	}
}

// MessageWatch is a live, timestamp-ascending subscription over one
// conversation. Each update is the full ordered set; the only in-place
// mutation is the sender-avatar backfill, which never reorders.
type MessageWatch struct {
	service        *MessageService
	conversationID string
	viewerID       string
	sub            *realtime.Subscription
	updates        chan []*Message
	errs           chan error

	mu       sync.Mutex
	current  []*Message
	backfill map[string]bool // message ids with a backfill in flight
}

func (w *MessageWatch) Updates() <-chan []*Message { return w.updates }
func (w *MessageWatch) Errs() <-chan error         { return w.errs }
func (w *MessageWatch) Stop()                      { w.sub.Stop() }

// Done is closed when the watch stops. Updates is never closed, so forwarders
// select on Done for teardown.
func (w *MessageWatch) Done() <-chan struct{} { return w.sub.Done() }

// Watch opens a live message stream for the viewer. Messages missing a
// sender avatar and not authored by the viewer get an asynchronous backfill
// that patches the snapshot when it resolves; display never waits for it.
func (s *MessageService) Watch(ctx context.Context, conversationID, viewerID string) (*MessageWatch, error) {
	if viewerID == "" {
		return nil, ErrNotAuthenticated
	}
	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}

	sub := s.bus.Subscribe(realtime.TopicMessages(conversationID))
	if err := sub.Start(); err != nil {
		return nil, err
	}

	w := &MessageWatch{
		service:        s,
		conversationID: conversationID,
		viewerID:       viewerID,
		sub:            sub,
		updates:        make(chan []*Message, 1),
		errs:           make(chan error, 1),
		backfill:       make(map[string]bool),
	}
	go w.loop(ctx)
	return w, nil
}

// loop drives the watch. The updates channel is deliberately never closed:
// backfill goroutines may emit after the loop exits, and consumers are
// expected to select on Done for teardown.
func (w *MessageWatch) loop(ctx context.Context) {
	w.refresh(ctx)
	for {
		select {
		case <-w.sub.Signals():
			w.refresh(ctx)
		case <-w.sub.Done():
			return
		case <-ctx.Done():
			w.sub.Stop()
			return
		}
	}
}

func (w *MessageWatch) refresh(ctx context.Context) {
	snapshot, err := w.service.messages.ListMessages(ctx, w.conversationID)
	if err != nil {
		select {
		case w.errs <- err:
		default:
		}
		return
	}
	SortMessages(snapshot)

	w.mu.Lock()
	w.current = snapshot
	w.mu.Unlock()
	w.emit(ctx)

	if w.service.avatars == nil {
		return
	}
	for _, message := range snapshot {
		if message.SenderAvatar != "" || message.SenderID == w.viewerID {
			continue
		}
		w.mu.Lock()
		inFlight := w.backfill[message.ID]
		if !inFlight {
			w.backfill[message.ID] = true
		}
		w.mu.Unlock()
		if !inFlight {
			go w.backfillAvatar(ctx, message.ID, message.SenderID, message.SenderType)
		}
	}
}

// backfillAvatar patches one message's sender avatar into the current
// snapshot and re-emits it. Failures are logged and the message keeps its
// placeholder-free state.
func (w *MessageWatch) backfillAvatar(ctx context.Context, messageID, senderID string, senderType AccountType) {
	avatarURL, err := w.service.avatars.GetAvatar(ctx, senderID, senderType)
	if err != nil || avatarURL == "" {
		if err != nil {
			w.service.logger.Debug("avatar backfill failed",
				zap.String("message_id", messageID),
				zap.Error(err),
			)
		}
		return
	}

	if err := w.service.messages.PatchSenderAvatar(ctx, messageID, avatarURL); err != nil {
		w.service.logger.Debug("avatar backfill patch failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}

	w.mu.Lock()
	patched := make([]*Message, len(w.current))
	for i, m := range w.current {
		if m.ID == messageID {
			clone := *m
			clone.SenderAvatar = avatarURL
			patched[i] = &clone
		} else {
			patched[i] = m
		}
	}
	w.current = patched
	w.mu.Unlock()
	w.emit(ctx)
}

func (w *MessageWatch) emit(ctx context.Context) {
	w.mu.Lock()
	snapshot := w.current
	w.mu.Unlock()

	select {
	case w.updates <- snapshot:
	default:
		// Replace a pending stale snapshot instead of blocking.
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- snapshot:
		case <-w.sub.Done():
		case <-ctx.Done():
		}
	}
}

// ListMessages returns the conversation's messages ascending by timestamp,
// for the one-shot HTTP path.
func (s *MessageService) ListMessages(ctx context.Context, conversationID, viewerID string) ([]*Message, error) {
	if viewerID == "" {
		return nil, ErrNotAuthenticated
	}
	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}
	messages, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	SortMessages(messages)
	return messages, nil
}
