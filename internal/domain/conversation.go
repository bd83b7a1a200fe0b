package domain

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// conversationNamespace seeds the deterministic conversation ids. Changing it
// would orphan every existing conversation.
var conversationNamespace = uuid.MustParse("9f2c1b4e-5a77-4d1a-8c3e-2b60d1f0a5c4")

// PairConversationID derives the conversation id for an unordered participant
// pair. Both orderings produce the same id, which turns "create" into an
// idempotent upsert and removes the check-then-create race.
func PairConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return uuid.NewSHA1(conversationNamespace, []byte(strings.Join(pair, "|"))).String()
}

// Conversation is a two-party thread. For any unordered participant pair at
// most one conversation exists; its id is derived from the pair.
type Conversation struct {
	ID                 string                 `json:"id"`
	Participants       []string               `json:"participants"`
	ParticipantNames   map[string]string      `json:"participant_names"`
	ParticipantTypes   map[string]AccountType `json:"participant_types"`
	ParticipantAvatars map[string]string      `json:"participant_avatars"`
	LastMessage        string                 `json:"last_message"`
	LastMessageTime    *time.Time             `json:"last_message_time,omitempty"`
	LastSenderID       string                 `json:"last_sender_id"`
	UnreadCount        map[string]int         `json:"unread_count"`
	IsActive           bool                   `json:"is_active"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// HasParticipant reports whether the account takes part in the conversation.
func (c *Conversation) HasParticipant(accountID string) bool {
	for _, p := range c.Participants {
		if p == accountID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of the given account, or "" when the
// account is not a participant.
func (c *Conversation) OtherParticipant(accountID string) string {
	for _, p := range c.Participants {
		if p != accountID {
			return p
		}
	}
	return ""
}

// SortConversations orders a snapshot by updatedAt descending. The underlying
// store does not guarantee order (that would require a composite index), so
// consumers sort client-side.
func SortConversations(conversations []*Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
}

// ConversationRepository owns conversation documents.
type ConversationRepository interface {
	// UpsertConversation inserts the conversation if its id is new and
	// returns the stored row either way.
	UpsertConversation(ctx context.Context, conversation *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]*Conversation, error)
	// UpdateSummary advances lastMessage/lastMessageTime/lastSenderId/
	// updatedAt and bumps the receiver's unread counter.
	UpdateSummary(ctx context.Context, id, lastMessage, senderID, receiverID string, at time.Time) error
	// ResetUnread zeroes the viewer's unread counter.
	ResetUnread(ctx context.Context, id, viewerID string) error
}
