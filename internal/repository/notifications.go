package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/scoutlink/backend/internal/domain"
)

// ListSystemNotifications returns the user's general notifications, newest
// first.
func (r *PostgresRepository) ListSystemNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, is_read, link, metadata,
		       created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list system notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.IsRead,
			&n.Link,
			&n.Metadata,
			&n.CreatedAt,
			&n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan system notification: %w", err)
		}
		n.Source = domain.SourceSystem
		out = append(out, &n)
	}
	return out, rows.Err()
}

// ListInteractionNotifications returns the user's interaction notifications,
// newest first. The display type is derived later from the action type, so
// only the action is stored.
func (r *PostgresRepository) ListInteractionNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, title, message, is_read, link, metadata,
		       sender_id, sender_name, sender_avatar, sender_account_type,
		       action_type, created_at, updated_at
		FROM interaction_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interaction notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.IsRead,
			&n.Link,
			&n.Metadata,
			&n.SenderID,
			&n.SenderName,
			&n.SenderAvatar,
			&n.SenderAccountType,
			&n.ActionType,
			&n.CreatedAt,
			&n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan interaction notification: %w", err)
		}
		n.Source = domain.SourceInteraction
		out = append(out, &n)
	}
	return out, rows.Err()
}

// CreateSystemNotification inserts a general notification.
func (r *PostgresRepository) CreateSystemNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, title, message, type, is_read, link, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead,
		n.Link, n.Metadata, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create system notification: %w", err)
	}
	return nil
}

// CreateInteractionNotification inserts an interaction notification.
func (r *PostgresRepository) CreateInteractionNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO interaction_notifications (
			id, user_id, title, message, is_read, link, metadata,
			sender_id, sender_name, sender_avatar, sender_account_type,
			action_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.Title, n.Message, n.IsRead, n.Link, n.Metadata,
		n.SenderID, n.SenderName, n.SenderAvatar, string(n.SenderAccountType),
		string(n.ActionType), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create interaction notification: %w", err)
	}
	return nil
}

// MarkSystemRead marks a general notification read. System notifications
// track when they were read, so updated_at moves with the flag.
func (r *PostgresRepository) MarkSystemRead(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE notifications SET is_read = TRUE, updated_at = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark system notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkInteractionRead marks an interaction notification read. The
// interaction source only carries the flag.
func (r *PostgresRepository) MarkInteractionRead(ctx context.Context, id string) error {
	query := `UPDATE interaction_notifications SET is_read = TRUE WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark interaction notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// RegisterDeviceToken stores a push token for a user. Re-registering the
// same token is a no-op.
func (r *PostgresRepository) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO device_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

// GetDeviceTokens returns the push tokens registered for a user.
func (r *PostgresRepository) GetDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT token FROM device_tokens WHERE user_id = $1`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
