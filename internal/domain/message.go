package domain

import (
	"context"
	"sort"
	"time"
)

// DeliveryStatus tracks a message through the send path.
type DeliveryStatus string

const (
	DeliverySending DeliveryStatus = "sending"
	DeliverySent    DeliveryStatus = "sent"
)

// MessageTypeText is the only message type the core produces.
const MessageTypeText = "text"

// Message is immutable once created, except for the isRead flag and the lazy
// senderAvatar backfill.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	ReceiverID     string         `json:"receiver_id"`
	SenderName     string         `json:"sender_name"`
	ReceiverName   string         `json:"receiver_name"`
	SenderType     AccountType    `json:"sender_type"`
	ReceiverType   AccountType    `json:"receiver_type"`
	Body           string         `json:"message"`
	Timestamp      time.Time      `json:"timestamp"`
	IsRead         bool           `json:"is_read"`
	MessageType    string         `json:"message_type"`
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
}

// SortMessages orders a snapshot ascending by timestamp, the delivery order
// every message subscription guarantees.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// MessageRepository appends and reads conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *Message) error
	// ListMessages returns the conversation's messages in ascending
	// timestamp order.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	// MarkMessagesRead flags every message addressed to the reader as read.
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) error
	// PatchSenderAvatar backfills a resolved avatar onto a stored message.
	PatchSenderAvatar(ctx context.Context, messageID, avatarURL string) error
}
