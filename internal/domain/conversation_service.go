package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/realtime"
)

// ConversationService owns conversation documents and their live list.
type ConversationService struct {
	repo     ConversationRepository
	messages MessageRepository
	source   IdentitySource
	resolver *IdentityResolver
	bus      *realtime.Bus
	logger   *zap.Logger
}

func NewConversationService(
	repo ConversationRepository,
	messages MessageRepository,
	source IdentitySource,
	resolver *IdentityResolver,
	bus *realtime.Bus,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		repo:     repo,
		messages: messages,
		source:   source,
		resolver: resolver,
		bus:      bus,
		logger:   logger,
	}
}

// ListConversations returns the user's conversations sorted by updatedAt
// descending.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	conversations, err := s.repo.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	SortConversations(conversations)
	return conversations, nil
}

// EnsureConversation returns the conversation between the user and the
// contact, creating it when absent. The id is derived from the participant
// pair, so concurrent calls from different clients converge on one row
// instead of racing a check-then-create.
func (s *ConversationService) EnsureConversation(ctx context.Context, userID string, contact *Contact) (*Conversation, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if contact == nil || contact.AccountID == "" {
		return nil, fmt.Errorf("ensure conversation: missing contact")
	}
	if contact.AccountID == userID {
		return nil, ErrSelfConversation
	}

	selfType := AccountTypePlayer
	if account, err := s.source.GetRawAccount(ctx, userID); err == nil && account.AccountType != "" {
		selfType = account.AccountType
	}
	self := s.resolver.Resolve(ctx, userID, selfType)

	now := time.Now().UTC()
	conversation := &Conversation{
		ID:           PairConversationID(userID, contact.AccountID),
		Participants: []string{userID, contact.AccountID},
		ParticipantNames: map[string]string{
			userID:            self.DisplayName,
			contact.AccountID: contact.Name,
		},
		ParticipantTypes: map[string]AccountType{
			userID:            selfType,
			contact.AccountID: contact.Type,
		},
		ParticipantAvatars: map[string]string{
			userID:            self.AvatarURL,
			contact.AccountID: contact.AvatarURL,
		},
		UnreadCount: map[string]int{
			userID:            0,
			contact.AccountID: 0,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := s.repo.UpsertConversation(ctx, conversation)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	s.bus.Publish(realtime.TopicConversations(userID))
	s.bus.Publish(realtime.TopicConversations(contact.AccountID))
	return stored, nil
}

// OpenConversation marks the conversation read for the viewer and returns
// it. Which conversation is "active" is a client-local concept; sessions
// track it, the store does not.
func (s *ConversationService) OpenConversation(ctx context.Context, conversationID, viewerID string) (*Conversation, error) {
	if viewerID == "" {
		return nil, ErrNotAuthenticated
	}
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}

	if err := s.repo.ResetUnread(ctx, conversationID, viewerID); err != nil {
		s.logger.Warn("failed to reset unread counter",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	} else {
		conversation.UnreadCount[viewerID] = 0
	}
	if err := s.messages.MarkMessagesRead(ctx, conversationID, viewerID); err != nil {
		s.logger.Warn("failed to mark messages read",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
	s.bus.Publish(realtime.TopicConversations(viewerID))
	return conversation, nil
}

// ConversationWatch is a standing subscription over a user's conversation
// list. Every update is the current full ordered set, not a diff.
type ConversationWatch struct {
	sub     *realtime.Subscription
	updates chan []*Conversation
	errs    chan error
}

// Updates emits re-materialized snapshots sorted by updatedAt descending.
func (w *ConversationWatch) Updates() <-chan []*Conversation { return w.updates }

// Errs reports snapshot refresh failures. The watch stays alive; the last
// good snapshot remains valid.
func (w *ConversationWatch) Errs() <-chan error { return w.errs }

// Stop tears the watch down. Idempotent. Consumers must call it when they
// go away; a leaked watch keeps pushing updates against a stale identity.
func (w *ConversationWatch) Stop() { w.sub.Stop() }

// Watch opens a live subscription on the user's conversation list. The
// initial snapshot is delivered before the first change signal.
func (s *ConversationService) Watch(ctx context.Context, userID string) (*ConversationWatch, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	sub := s.bus.Subscribe(realtime.TopicConversations(userID))
	if err := sub.Start(); err != nil {
		return nil, err
	}

	w := &ConversationWatch{
		sub:     sub,
		updates: make(chan []*Conversation, 1),
		errs:    make(chan error, 1),
	}
	go s.watchLoop(ctx, userID, w)
	return w, nil
}

func (s *ConversationService) watchLoop(ctx context.Context, userID string, w *ConversationWatch) {
	defer close(w.updates)

	emit := func() {
		snapshot, err := s.ListConversations(ctx, userID)
		if err != nil {
			select {
			case w.errs <- err:
			default:
			}
			return
		}
		select {
		case w.updates <- snapshot:
		case <-w.sub.Done():
		case <-ctx.Done():
		}
	}

	emit()
	for {
		select {
		case <-w.sub.Signals():
			emit()
		case <-w.sub.Done():
			return
		case <-ctx.Done():
			w.sub.Stop()
			return
		}
	}
}
