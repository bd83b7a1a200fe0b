package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is the in-memory backing store the service tests run against. It
// implements every repository interface the services consume.
type memStore struct {
	mu sync.Mutex

	accounts map[string]*Account
	profiles map[string]ProfileFields // keyed type:id
	avatars  map[string]string        // keyed type:id

	conversations map[string]*Conversation
	messages      map[string][]*Message // keyed by conversation id

	system       map[string]*Notification
	interactions map[string]*Notification
	tokens       map[string][]string

	online map[string]bool

	listAccountsErr error
	profileErr      error
	presenceErr     error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      make(map[string]*Account),
		profiles:      make(map[string]ProfileFields),
		avatars:       make(map[string]string),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		system:        make(map[string]*Notification),
		interactions:  make(map[string]*Notification),
		tokens:        make(map[string][]string),
		online:        make(map[string]bool),
	}
}

func (m *memStore) addAccount(a *Account, profile ProfileFields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	if profile != nil {
		m.profiles[string(a.AccountType)+":"+a.ID] = profile
	}
}

// IdentitySource

func (m *memStore) GetRawAccount(ctx context.Context, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (m *memStore) GetProfile(ctx context.Context, accountType AccountType, accountID string) (ProfileFields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p, ok := m.profiles[string(accountType)+":"+accountID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// AccountLister

func (m *memStore) ListAccounts(ctx context.Context, limit int) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listAccountsErr != nil {
		return nil, m.listAccountsErr
	}
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if len(out) == limit {
			break
		}
		out = append(out, a)
	}
	return out, nil
}

// AvatarStore

func (m *memStore) GetAvatar(ctx context.Context, accountID string, accountType AccountType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avatars[string(accountType)+":"+accountID], nil
}

// PresenceChecker

func (m *memStore) OnlineStatuses(ctx context.Context, accountIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presenceErr != nil {
		return nil, m.presenceErr
	}
	out := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		out[id] = m.online[id]
	}
	return out, nil
}

// ConversationRepository

func (m *memStore) UpsertConversation(ctx context.Context, conversation *Conversation) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.conversations[conversation.ID]; ok {
		return existing, nil
	}
	m.conversations[conversation.ID] = conversation
	return conversation, nil
}

func (m *memStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

func (m *memStore) ListConversationsByUser(ctx context.Context, userID string) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateSummary(ctx context.Context, id, lastMessage, senderID, receiverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	c.LastMessage = lastMessage
	c.LastMessageTime = &at
	c.LastSenderID = senderID
	c.UpdatedAt = at
	c.UnreadCount[receiverID]++
	return nil
}

func (m *memStore) ResetUnread(ctx context.Context, id, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	c.UnreadCount[viewerID] = 0
	return nil
}

// MessageRepository

func (m *memStore) CreateMessage(ctx context.Context, message *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *memStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.messages[conversationID]))
	copy(out, m.messages[conversationID])
	return out, nil
}

func (m *memStore) MarkMessagesRead(ctx context.Context, conversationID, readerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages[conversationID] {
		if msg.ReceiverID == readerID {
			msg.IsRead = true
		}
	}
	return nil
}

func (m *memStore) PatchSenderAvatar(ctx context.Context, messageID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msgs := range m.messages {
		for _, msg := range msgs {
			if msg.ID == messageID && msg.SenderAvatar == "" {
				msg.SenderAvatar = avatarURL
			}
		}
	}
	return nil
}

// NotificationRepository

func (m *memStore) ListSystemNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.system {
		if limit > 0 && len(out) == limit {
			break
		}
		if n.UserID == userID {
			n.Source = SourceSystem
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) ListInteractionNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.interactions {
		if limit > 0 && len(out) == limit {
			break
		}
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) CreateSystemNotification(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.system[n.ID] = n
	return nil
}

func (m *memStore) CreateInteractionNotification(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[n.ID] = n
	return nil
}

func (m *memStore) MarkSystemRead(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.system[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	n.UpdatedAt = at
	return nil
}

func (m *memStore) MarkInteractionRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.interactions[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *memStore) GetDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memStore) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens[userID] {
		if t == token {
			return nil
		}
	}
	m.tokens[userID] = append(m.tokens[userID], token)
	return nil
}

// recordingPusher captures push deliveries.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushRecord
}

type pushRecord struct {
	Token string
	Title string
	Body  string
}

func (p *recordingPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushRecord{Token: token, Title: title, Body: body})
	return nil
}

var errStoreDown = errors.New("store down")
