// Package presence tracks which accounts are currently online using
// TTL-based Redis keys. A key expiring is how an account goes offline, so
// there is no explicit offline sweep.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "presence:"

	// DefaultTTL is how long a heartbeat keeps an account online. Clients
	// are expected to beat at half this interval.
	DefaultTTL = 60 * time.Second
)

var ErrEmptyAccountID = errors.New("presence: account id cannot be empty")

// Tracker marks accounts online on heartbeat and answers batch status
// lookups for the contact directory.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTracker(client *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{client: client, ttl: ttl}
}

func presenceKey(accountID string) string {
	return keyPrefix + accountID
}

// Heartbeat marks the account online for the tracker's TTL. Called on every
// websocket ping and on any authenticated request.
func (t *Tracker) Heartbeat(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}
	if err := t.client.Set(ctx, presenceKey(accountID), time.Now().UTC().Unix(), t.ttl).Err(); err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

// SetOffline drops the account's presence key immediately. Called on clean
// websocket disconnect so the directory does not show a stale green dot for
// up to a full TTL.
func (t *Tracker) SetOffline(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}
	if err := t.client.Del(ctx, presenceKey(accountID)).Err(); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	return nil
}

// IsOnline reports whether a single account's presence key is live.
func (t *Tracker) IsOnline(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrEmptyAccountID
	}
	n, err := t.client.Exists(ctx, presenceKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// OnlineStatuses answers a batch lookup with one pipelined round trip.
// Accounts with no live key map to false.
func (t *Tracker) OnlineStatuses(ctx context.Context, accountIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}

	pipe := t.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(accountIDs))
	for _, id := range accountIDs {
		cmds[id] = pipe.Exists(ctx, presenceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("presence batch lookup: %w", err)
	}

	for id, cmd := range cmds {
		n, err := cmd.Result()
		result[id] = err == nil && n > 0
	}
	return result, nil
}
