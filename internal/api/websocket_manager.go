package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 8192
)

// eventSeparator delimits events batched into one websocket frame.
var eventSeparator = []byte{'\n'}

// WSEvent is the outbound frame shape. Type is one of "conversations",
// "messages", "notifications", "error".
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsCommand is the inbound frame shape.
type wsCommand struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Client is one websocket connection for one account. An account may hold
// several clients at once (multiple tabs, devices).
type Client struct {
	ID     uuid.UUID
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	session *session
}

// WebSocketManager tracks connected clients and routes server-side events
// to every connection an account holds.
type WebSocketManager struct {
	conversations *domain.ConversationService
	messages      *domain.MessageService
	notifications *domain.NotificationService
	presence      *presence.Tracker

	clients     map[*Client]bool
	userClients map[string]map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewWebSocketManager(
	conversations *domain.ConversationService,
	messages *domain.MessageService,
	notifications *domain.NotificationService,
	tracker *presence.Tracker,
	logger *zap.Logger,
) *WebSocketManager {
	return &WebSocketManager{
		conversations: conversations,
		messages:      messages,
		notifications: notifications,
		presence:      tracker,
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		logger:        logger,
	}
}

func (m *WebSocketManager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			if _, ok := m.userClients[client.UserID]; !ok {
				m.userClients[client.UserID] = make(map[*Client]bool)
			}
			m.userClients[client.UserID][client] = true
			m.mu.Unlock()

			m.heartbeat(client.UserID)
			m.logger.Debug("websocket client registered", zap.String("user_id", client.UserID))

		case client := <-m.unregister:
			m.mu.Lock()
			lastForUser := false
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				if userMap, ok := m.userClients[client.UserID]; ok {
					delete(userMap, client)
					if len(userMap) == 0 {
						delete(m.userClients, client.UserID)
						lastForUser = true
					}
				}
			}
			m.mu.Unlock()

			// Send is never closed: forward goroutines may still be
			// delivering a snapshot. Cancelling the session unblocks them,
			// and WritePump ends when the connection closes.
			client.session.stop()
			if lastForUser && m.presence != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := m.presence.SetOffline(ctx, client.UserID); err != nil {
					m.logger.Warn("presence offline failed", zap.String("user_id", client.UserID), zap.Error(err))
				}
				cancel()
			}
			m.logger.Debug("websocket client unregistered", zap.String("user_id", client.UserID))
		}
	}
}

// SendToUser fans an event out to every connection the account holds. Slow
// clients are skipped rather than blocked on.
func (m *WebSocketManager) SendToUser(userID string, event WSEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients, ok := m.userClients[userID]
	if !ok {
		return
	}

	jsonMsg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.Send <- jsonMsg:
		default:
		}
	}
}

func (m *WebSocketManager) heartbeat(userID string) {
	if m.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.presence.Heartbeat(ctx, userID); err != nil {
		m.logger.Warn("presence heartbeat failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// session is the live server-side state of one connection: the standing
// conversation and feed watches, plus the message watch for whichever
// conversation the client currently has open. The active conversation is a
// per-session concept and never persisted.
type session struct {
	manager *WebSocketManager
	client  *Client

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	activeWatch *domain.MessageWatch
	activeID    string
}

func newSession(manager *WebSocketManager, client *Client) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		manager: manager,
		client:  client,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// start opens the standing watches. Called once, right after registration.
func (s *session) start() {
	userID := s.client.UserID

	convWatch, err := s.manager.conversations.Watch(s.ctx, userID)
	if err != nil {
		s.manager.logger.Error("conversation watch failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		go s.forwardConversations(convWatch)
	}

	feedWatch, err := s.manager.notifications.Watch(s.ctx, userID)
	if err != nil {
		s.manager.logger.Error("feed watch failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		go s.forwardFeed(feedWatch)
	}
}

func (s *session) stop() {
	s.cancel()
	s.mu.Lock()
	if s.activeWatch != nil {
		s.activeWatch.Stop()
		s.activeWatch = nil
		s.activeID = ""
	}
	s.mu.Unlock()
}

func (s *session) forwardConversations(w *domain.ConversationWatch) {
	defer w.Stop()
	for {
		select {
		case snapshot, ok := <-w.Updates():
			if !ok {
				return
			}
			s.send(WSEvent{Type: "conversations", Payload: snapshot})
		case err := <-w.Errs():
			s.manager.logger.Warn("conversation snapshot failed", zap.String("user_id", s.client.UserID), zap.Error(err))
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) forwardFeed(w *domain.FeedWatch) {
	defer w.Stop()
	for {
		select {
		case feed, ok := <-w.Updates():
			if !ok {
				return
			}
			s.send(WSEvent{Type: "notifications", Payload: feed})
		case err := <-w.Errs():
			s.manager.logger.Warn("feed snapshot failed", zap.String("user_id", s.client.UserID), zap.Error(err))
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) forwardMessages(w *domain.MessageWatch, conversationID string) {
	for {
		select {
		case snapshot := <-w.Updates():
			s.mu.Lock()
			stale := s.activeID != conversationID
			s.mu.Unlock()
			if stale {
				return
			}
			s.send(WSEvent{Type: "messages", Payload: snapshot})
		case err := <-w.Errs():
			s.manager.logger.Warn("message snapshot failed", zap.String("conversation_id", conversationID), zap.Error(err))
		case <-w.Done():
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// handle dispatches one inbound command.
func (s *session) handle(cmd wsCommand) {
	switch cmd.Type {
	case "heartbeat":
		s.manager.heartbeat(s.client.UserID)

	case "open_conversation":
		s.openConversation(cmd.ConversationID)

	case "close_conversation":
		s.closeConversation()

	case "send_message":
		if _, err := s.manager.messages.Send(s.ctx, cmd.ConversationID, s.client.UserID, cmd.Message); err != nil {
			s.sendError(err.Error())
		}

	default:
		s.sendError("unknown command type")
	}
}

// openConversation switches the session's active conversation: the previous
// message watch stops, unread counters reset, and a new watch starts.
func (s *session) openConversation(conversationID string) {
	if conversationID == "" {
		s.sendError("missing conversation id")
		return
	}

	s.closeConversation()

	if _, err := s.manager.conversations.OpenConversation(s.ctx, conversationID, s.client.UserID); err != nil {
		s.sendError(err.Error())
		return
	}

	watch, err := s.manager.messages.Watch(s.ctx, conversationID, s.client.UserID)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	s.mu.Lock()
	s.activeWatch = watch
	s.activeID = conversationID
	s.mu.Unlock()

	go s.forwardMessages(watch, conversationID)
}

func (s *session) closeConversation() {
	s.mu.Lock()
	if s.activeWatch != nil {
		s.activeWatch.Stop()
		s.activeWatch = nil
		s.activeID = ""
	}
	s.mu.Unlock()
}

func (s *session) send(event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.manager.logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}
	select {
	case s.client.Send <- data:
	case <-s.ctx.Done():
	}
}

func (s *session) sendError(message string) {
	s.send(WSEvent{Type: "error", Payload: map[string]string{"message": message}})
}

func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		manager.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxInboundSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		manager.heartbeat(c.UserID)
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.session.sendError("malformed command")
			continue
		}
		c.session.handle(cmd)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued events into this frame, newline separated so
			// clients can split the batch back into JSON documents.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(eventSeparator)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
