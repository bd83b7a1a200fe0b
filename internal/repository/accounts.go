package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/scoutlink/backend/internal/domain"
)

// ListAccounts scans up to limit raw accounts, newest first. Deleted
// accounts are filtered at the query.
func (r *PostgresRepository) ListAccounts(ctx context.Context, limit int) ([]*domain.Account, error) {
	query := `
		SELECT id, account_type, COALESCE(name, ''), COALESCE(full_name, ''), COALESCE(display_name, ''), COALESCE(avatar_url, '')
		FROM accounts
		WHERE is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.AccountType, &a.Name, &a.FullName, &a.DisplayName, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// GetRawAccount retrieves one raw account record.
func (r *PostgresRepository) GetRawAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT id, account_type, COALESCE(name, ''), COALESCE(full_name, ''), COALESCE(display_name, ''), COALESCE(avatar_url, '')
		FROM accounts
		WHERE id = $1 AND is_deleted = FALSE
	`
	var a domain.Account
	err := r.db.QueryRow(ctx, query, accountID).Scan(&a.ID, &a.AccountType, &a.Name, &a.FullName, &a.DisplayName, &a.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetProfile retrieves the type-specific profile record as a flat field
// map. Non-string fields are rendered with their JSON text form so the
// resolver's fallback chains can consume everything uniformly.
func (r *PostgresRepository) GetProfile(ctx context.Context, accountType domain.AccountType, accountID string) (domain.ProfileFields, error) {
	query := `SELECT fields FROM profiles WHERE account_id = $1 AND account_type = $2`

	var raw map[string]any
	err := r.db.QueryRow(ctx, query, accountID, string(accountType)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	fields := make(domain.ProfileFields, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
			// skip
		default:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}
	return fields, nil
}
