package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when a core operation is invoked
	// without a resolved current-user identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrAccountNotFound      = errors.New("account not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotParticipant is returned when a sender is not part of the
	// conversation they are writing to.
	ErrNotParticipant = errors.New("sender is not a conversation participant")

	// ErrEmptyMessage is returned for blank or whitespace-only message bodies.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrSelfConversation is returned when a user tries to open a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot start a conversation with self")

	// ErrDirectoryUnavailable wraps a whole-batch directory failure. Callers
	// should surface a retryable empty state rather than a partial list.
	ErrDirectoryUnavailable = errors.New("contact directory unavailable")
)
