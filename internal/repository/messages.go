package repository

import (
	"context"
	"fmt"

	"github.com/scoutlink/backend/internal/domain"
)

// CreateMessage appends a message row.
func (r *PostgresRepository) CreateMessage(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (
			id, conversation_id, sender_id, receiver_id, sender_name, receiver_name,
			sender_type, receiver_type, body, ts, is_read, message_type,
			sender_avatar, delivery_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.ConversationID,
		m.SenderID,
		m.ReceiverID,
		m.SenderName,
		m.ReceiverName,
		string(m.SenderType),
		string(m.ReceiverType),
		m.Body,
		m.Timestamp,
		m.IsRead,
		m.MessageType,
		m.SenderAvatar,
		string(m.DeliveryStatus),
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages ascending by timestamp.
func (r *PostgresRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, sender_name, receiver_name,
		       sender_type, receiver_type, body, ts, is_read, message_type,
		       sender_avatar, delivery_status
		FROM messages
		WHERE conversation_id = $1
		ORDER BY ts ASC
	`
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.ReceiverID,
			&m.SenderName,
			&m.ReceiverName,
			&m.SenderType,
			&m.ReceiverType,
			&m.Body,
			&m.Timestamp,
			&m.IsRead,
			&m.MessageType,
			&m.SenderAvatar,
			&m.DeliveryStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// MarkMessagesRead flags every message addressed to the reader as read.
func (r *PostgresRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	query := `
		UPDATE messages SET is_read = TRUE
		WHERE conversation_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`
	if _, err := r.db.Exec(ctx, query, conversationID, readerID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}

// PatchSenderAvatar backfills a resolved avatar onto a stored message. Only
// rows still missing one are touched, so the patch never overwrites.
func (r *PostgresRepository) PatchSenderAvatar(ctx context.Context, messageID, avatarURL string) error {
	query := `UPDATE messages SET sender_avatar = $2 WHERE id = $1 AND sender_avatar = ''`
	if _, err := r.db.Exec(ctx, query, messageID, avatarURL); err != nil {
		return fmt.Errorf("patch sender avatar: %w", err)
	}
	return nil
}
