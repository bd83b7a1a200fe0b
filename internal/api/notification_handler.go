package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/internal/middleware"
	"github.com/scoutlink/backend/pkg/response"
)

// NotificationHandler serves the merged notification feed.
type NotificationHandler struct {
	notifications *domain.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

func feedFilterFromQuery(r *http.Request) domain.NotificationFilter {
	return domain.NotificationFilter{
		SearchTerm: r.URL.Query().Get("search"),
		Type:       domain.NotificationType(r.URL.Query().Get("type")),
		ReadState:  domain.ReadState(r.URL.Query().Get("read_state")),
		ActionType: domain.ActionType(r.URL.Query().Get("action_type")),
	}
}

// GetFeed returns the caller's merged feed, newest first, with the query
// filters applied.
func (h *NotificationHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feed, err := h.notifications.Feed(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to load notification feed", zap.Error(err))
		response.InternalError(w, "failed to load notifications")
		return
	}

	response.OK(w, domain.FilterNotifications(feed, feedFilterFromQuery(r)))
}

// GetStats returns aggregate counts over the caller's feed.
func (h *NotificationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	feed, err := h.notifications.Feed(r.Context(), userID, 0)
	if err != nil {
		h.logger.Error("failed to load notification feed", zap.Error(err))
		response.InternalError(w, "failed to load notifications")
		return
	}

	response.OK(w, domain.ComputeStats(feed))
}

// MarkRead marks one notification read. The optional source in the body
// routes the update directly; without it both sources are probed.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id := chi.URLParam(r, "notificationId")

	var req struct {
		Source domain.NotificationSource `json:"source"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request")
			return
		}
	}

	if err := h.notifications.MarkRead(r.Context(), id, req.Source); err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to mark notification read", zap.Error(err))
		response.InternalError(w, "failed to mark notification read")
		return
	}

	response.NoContent(w)
}

// MarkAllRead marks every unread item in the caller's feed.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.notifications.MarkAllRead(r.Context(), userID); err != nil {
		h.logger.Error("failed to mark all notifications read", zap.Error(err))
		response.InternalError(w, "failed to mark notifications read")
		return
	}

	response.NoContent(w)
}

// RegisterDeviceToken stores a push token for the caller.
func (h *NotificationHandler) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.BadRequest(w, "missing token")
		return
	}

	if err := h.notifications.RegisterDeviceToken(r.Context(), userID, req.Token); err != nil {
		h.logger.Error("failed to register device token", zap.Error(err))
		response.InternalError(w, "failed to register device token")
		return
	}

	response.NoContent(w)
}
