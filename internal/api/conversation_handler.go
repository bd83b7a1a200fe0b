package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/internal/middleware"
	"github.com/scoutlink/backend/pkg/response"
	"github.com/scoutlink/backend/pkg/validator"
)

// ConversationHandler serves the conversation list, conversation creation
// and the message endpoints, plus the websocket entry point.
type ConversationHandler struct {
	conversations *domain.ConversationService
	messages      *domain.MessageService
	resolver      *domain.IdentityResolver
	wsManager     *WebSocketManager
	logger        *zap.Logger
}

func NewConversationHandler(
	conversations *domain.ConversationService,
	messages *domain.MessageService,
	resolver *domain.IdentityResolver,
	wsManager *WebSocketManager,
	logger *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		resolver:      resolver,
		wsManager:     wsManager,
		logger:        logger,
	}
}

// HandleWebSocket upgrades the connection and starts the live session.
func (h *ConversationHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.New(),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}
	client.session = newSession(h.wsManager, client)

	h.wsManager.register <- client
	client.session.start()

	go client.WritePump()
	go client.ReadPump(h.wsManager)
}

// ListConversations returns the caller's conversations, newest activity
// first.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conversations, err := h.conversations.ListConversations(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		response.InternalError(w, "failed to list conversations")
		return
	}

	response.OK(w, conversations)
}

// EnsureConversation opens (creating if needed) the conversation between
// the caller and the given account. The target identity is resolved server
// side; the client only names the account.
func (h *ConversationHandler) EnsureConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		AccountID   string             `json:"account_id"`
		AccountType domain.AccountType `json:"account_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}
	if !validator.ValidateAccountID(req.AccountID) {
		response.BadRequest(w, "invalid account id")
		return
	}
	if !req.AccountType.IsContactable() {
		response.BadRequest(w, "account type cannot be contacted")
		return
	}

	identity := h.resolver.Resolve(r.Context(), req.AccountID, req.AccountType)
	contact := &domain.Contact{
		CompositeID:      domain.CompositeContactID(req.AccountType, req.AccountID),
		AccountID:        req.AccountID,
		Name:             identity.DisplayName,
		Type:             req.AccountType,
		AvatarURL:        identity.AvatarURL,
		OrganizationName: identity.OrganizationName,
	}

	conversation, err := h.conversations.EnsureConversation(r.Context(), userID, contact)
	if err != nil {
		if errors.Is(err, domain.ErrSelfConversation) {
			response.BadRequest(w, "cannot start a conversation with yourself")
			return
		}
		h.logger.Error("failed to ensure conversation", zap.Error(err))
		response.InternalError(w, "failed to open conversation")
		return
	}

	response.OK(w, conversation)
}

// OpenConversation marks the conversation read for the caller and returns
// it.
func (h *ConversationHandler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conversationID := chi.URLParam(r, "conversationId")
	conversation, err := h.conversations.OpenConversation(r.Context(), conversationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConversationNotFound):
			response.NotFound(w, "conversation not found")
		case errors.Is(err, domain.ErrNotParticipant):
			response.Forbidden(w, "not a participant")
		default:
			h.logger.Error("failed to open conversation", zap.Error(err))
			response.InternalError(w, "failed to open conversation")
		}
		return
	}

	response.OK(w, conversation)
}

// GetMessages returns the conversation's messages in delivery order.
func (h *ConversationHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conversationID := chi.URLParam(r, "conversationId")
	messages, err := h.messages.ListMessages(r.Context(), conversationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConversationNotFound):
			response.NotFound(w, "conversation not found")
		case errors.Is(err, domain.ErrNotParticipant):
			response.Forbidden(w, "not a participant")
		default:
			h.logger.Error("failed to get messages", zap.Error(err))
			response.InternalError(w, "failed to get messages")
		}
		return
	}

	response.OK(w, messages)
}

// SendMessage is the HTTP send path; websocket sessions use the
// send_message command instead. Both go through the same service.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conversationID := chi.URLParam(r, "conversationId")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}
	if errs := validator.ValidateMessageBody(req.Message); errs.HasErrors() {
		response.BadRequest(w, errs.Error())
		return
	}

	message, err := h.messages.Send(r.Context(), conversationID, userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			response.BadRequest(w, "message cannot be empty")
		case errors.Is(err, domain.ErrConversationNotFound):
			response.NotFound(w, "conversation not found")
		case errors.Is(err, domain.ErrNotParticipant):
			response.Forbidden(w, "not a participant")
		default:
			h.logger.Error("failed to send message", zap.Error(err))
			response.InternalError(w, "failed to send message")
		}
		return
	}

	response.Created(w, message)
}
