// Package repository implements the domain repositories over PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the conversation, message, notification and
// identity-source repositories over one connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate applies the schema. Every statement is idempotent, so repeated
// startups are safe.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_type TEXT NOT NULL,
		name TEXT,
		full_name TEXT,
		display_name TEXT,
		avatar_url TEXT,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		account_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		fields JSONB NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (account_id, account_type)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		participants TEXT[] NOT NULL,
		participant_names JSONB NOT NULL DEFAULT '{}'::jsonb,
		participant_types JSONB NOT NULL DEFAULT '{}'::jsonb,
		participant_avatars JSONB NOT NULL DEFAULT '{}'::jsonb,
		last_message TEXT NOT NULL DEFAULT '',
		last_message_time TIMESTAMPTZ,
		last_sender_id TEXT NOT NULL DEFAULT '',
		unread_count JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_participants ON conversations USING GIN (participants)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		sender_name TEXT NOT NULL DEFAULT '',
		receiver_name TEXT NOT NULL DEFAULT '',
		sender_type TEXT NOT NULL DEFAULT '',
		receiver_type TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		message_type TEXT NOT NULL DEFAULT 'text',
		sender_avatar TEXT NOT NULL DEFAULT '',
		delivery_status TEXT NOT NULL DEFAULT 'sent'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts ON messages (conversation_id, ts)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'info',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		link TEXT NOT NULL DEFAULT '',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS interaction_notifications (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		action_type TEXT NOT NULL DEFAULT '',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		link TEXT NOT NULL DEFAULT '',
		sender_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		sender_avatar TEXT NOT NULL DEFAULT '',
		sender_account_type TEXT NOT NULL DEFAULT '',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interaction_notifications_user ON interaction_notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		user_id TEXT NOT NULL,
		token TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, token)
	)`,
}
