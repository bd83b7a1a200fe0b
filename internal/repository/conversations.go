package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scoutlink/backend/internal/domain"
)

const conversationColumns = `
	id, participants, participant_names, participant_types, participant_avatars,
	last_message, last_message_time, last_sender_id, unread_count,
	is_active, created_at, updated_at
`

// UpsertConversation inserts the conversation when its id is new. The id is
// derived from the participant pair, so ON CONFLICT DO NOTHING makes
// create-or-reuse a single idempotent write. The stored row is returned
// either way.
func (r *PostgresRepository) UpsertConversation(ctx context.Context, c *domain.Conversation) (*domain.Conversation, error) {
	query := `
		INSERT INTO conversations (
			id, participants, participant_names, participant_types, participant_avatars,
			last_message, last_message_time, last_sender_id, unread_count,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.Participants,
		c.ParticipantNames,
		c.ParticipantTypes,
		c.ParticipantAvatars,
		c.LastMessage,
		c.LastMessageTime,
		c.LastSenderID,
		c.UnreadCount,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	return r.GetConversation(ctx, c.ID)
}

// GetConversation retrieves one conversation by id.
func (r *PostgresRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)
	conversation, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return conversation, nil
}

// ListConversationsByUser returns every conversation the user takes part
// in. No ordering is imposed here; callers sort client-side.
func (r *PostgresRepository) ListConversationsByUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE $1 = ANY(participants)`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}
	return conversations, rows.Err()
}

// UpdateSummary advances the conversation's last-message fields and bumps
// the receiver's unread counter in one statement.
func (r *PostgresRepository) UpdateSummary(ctx context.Context, id, lastMessage, senderID, receiverID string, at time.Time) error {
	query := `
		UPDATE conversations SET
			last_message = $2,
			last_message_time = $3,
			last_sender_id = $4,
			updated_at = $3,
			unread_count = jsonb_set(
				unread_count,
				ARRAY[$5],
				to_jsonb(COALESCE((unread_count->>$5)::int, 0) + 1)
			)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, lastMessage, at, senderID, receiverID)
	if err != nil {
		return fmt.Errorf("update conversation summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// ResetUnread zeroes the viewer's unread counter.
func (r *PostgresRepository) ResetUnread(ctx context.Context, id, viewerID string) error {
	query := `
		UPDATE conversations
		SET unread_count = jsonb_set(unread_count, ARRAY[$2], '0'::jsonb)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, viewerID)
	if err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID,
		&c.Participants,
		&c.ParticipantNames,
		&c.ParticipantTypes,
		&c.ParticipantAvatars,
		&c.LastMessage,
		&c.LastMessageTime,
		&c.LastSenderID,
		&c.UnreadCount,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
