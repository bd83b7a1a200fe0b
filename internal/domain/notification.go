package domain

import (
	"context"
	"sort"
	"strings"
	"time"
)

// NotificationSource tags which physical collection a notification lives in.
// The unified feed would otherwise hide where an id belongs, forcing
// mark-read to probe both sources.
type NotificationSource string

const (
	SourceSystem      NotificationSource = "system"
	SourceInteraction NotificationSource = "interaction"
)

// NotificationType is the display severity of a feed item.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// ActionType classifies interaction notifications.
type ActionType string

const (
	ActionProfileView       ActionType = "profile_view"
	ActionMessageSent       ActionType = "message_sent"
	ActionConnectionRequest ActionType = "connection_request"
	ActionFollow            ActionType = "follow"
	ActionLike              ActionType = "like"
	ActionComment           ActionType = "comment"
)

// DisplayTypeForAction maps an interaction's action type to a display type.
// Unknown actions default to info, so producers writing new action types
// degrade silently instead of breaking the feed.
func DisplayTypeForAction(a ActionType) NotificationType {
	switch a {
	case ActionProfileView:
		return NotificationInfo
	case ActionMessageSent:
		return NotificationSuccess
	case ActionConnectionRequest:
		return NotificationWarning
	default:
		return NotificationInfo
	}
}

// Notification is the unified feed item merged from the system and
// interaction sources.
type Notification struct {
	ID       string             `json:"id"`
	UserID   string             `json:"user_id"`
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	Type     NotificationType   `json:"type"`
	IsRead   bool               `json:"is_read"`
	Link     string             `json:"link,omitempty"`
	Metadata map[string]any     `json:"metadata,omitempty"`
	Source   NotificationSource `json:"source"`

	SenderID          string      `json:"sender_id,omitempty"`
	SenderName        string      `json:"sender_name,omitempty"`
	SenderAvatar      string      `json:"sender_avatar,omitempty"`
	SenderAccountType AccountType `json:"sender_account_type,omitempty"`
	ActionType        ActionType  `json:"action_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SortNotifications orders the merged feed descending by createdAt. Stable,
// so same-instant items keep their source order.
func SortNotifications(notifications []*Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
}

// ReadState filters a feed by read status.
type ReadState string

const (
	ReadStateAll    ReadState = "all"
	ReadStateRead   ReadState = "read"
	ReadStateUnread ReadState = "unread"
)

// NotificationFilter narrows the merged feed. Zero values match everything.
type NotificationFilter struct {
	SearchTerm string
	Type       NotificationType
	ReadState  ReadState
	ActionType ActionType
}

// FilterNotifications applies the filter client-side. SearchTerm matches
// case-insensitively against title, message and sender name. Pure.
func FilterNotifications(feed []*Notification, f NotificationFilter) []*Notification {
	search := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	out := make([]*Notification, 0, len(feed))
	for _, n := range feed {
		if search != "" &&
			!strings.Contains(strings.ToLower(n.Title), search) &&
			!strings.Contains(strings.ToLower(n.Message), search) &&
			!strings.Contains(strings.ToLower(n.SenderName), search) {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		switch f.ReadState {
		case ReadStateRead:
			if !n.IsRead {
				continue
			}
		case ReadStateUnread:
			if n.IsRead {
				continue
			}
		}
		if f.ActionType != "" && n.ActionType != f.ActionType {
			continue
		}
		out = append(out, n)
	}
	return out
}

// NotificationStats is the dashboard aggregation over a feed.
type NotificationStats struct {
	Total    int                      `json:"total"`
	Unread   int                      `json:"unread"`
	ByType   map[NotificationType]int `json:"by_type"`
	ByAction map[ActionType]int       `json:"by_action"`
}

// ComputeStats aggregates counts over a feed. Pure.
func ComputeStats(feed []*Notification) NotificationStats {
	stats := NotificationStats{
		ByType:   make(map[NotificationType]int),
		ByAction: make(map[ActionType]int),
	}
	for _, n := range feed {
		stats.Total++
		if !n.IsRead {
			stats.Unread++
		}
		stats.ByType[n.Type]++
		if n.ActionType != "" {
			stats.ByAction[n.ActionType]++
		}
	}
	return stats
}

// NotificationRepository reads and updates the two physical notification
// sources. Mark operations return ErrNotificationNotFound when the id does
// not live in that source, which drives the probe fallback for untagged ids.
type NotificationRepository interface {
	ListSystemNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	ListInteractionNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CreateSystemNotification(ctx context.Context, n *Notification) error
	CreateInteractionNotification(ctx context.Context, n *Notification) error
	MarkSystemRead(ctx context.Context, id string, at time.Time) error
	MarkInteractionRead(ctx context.Context, id string) error
	GetDeviceTokens(ctx context.Context, userID string) ([]string, error)
	RegisterDeviceToken(ctx context.Context, userID, token string) error
}
