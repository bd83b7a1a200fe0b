package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/realtime"
)

const (
	defaultFeedLimit = 100

	// markAllFeedLimit bounds the mark-all sweep. Far above the display
	// page size so a backlog larger than one page still clears.
	markAllFeedLimit = 10000
)

// Pusher delivers a produced notification to a device token. Push is
// best-effort; a nil Pusher disables it.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// NotificationService merges the two physical notification sources into one
// feed and owns the mark-read operations.
type NotificationService struct {
	repo     NotificationRepository
	resolver *IdentityResolver
	pusher   Pusher
	bus      *realtime.Bus
	logger   *zap.Logger
}

func NewNotificationService(repo NotificationRepository, resolver *IdentityResolver, pusher Pusher, bus *realtime.Bus, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		resolver: resolver,
		pusher:   pusher,
		bus:      bus,
		logger:   logger,
	}
}

// Feed returns the merged feed, newest first. A failure on one source
// degrades to the other source's items; only both failing is an error.
func (s *NotificationService) Feed(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	system, sysErr := s.repo.ListSystemNotifications(ctx, userID, limit)
	if sysErr != nil {
		s.logger.Error("system notification source failed", zap.String("user_id", userID), zap.Error(sysErr))
	}
	interactions, intErr := s.listInteractions(ctx, userID, limit)
	if intErr != nil {
		s.logger.Error("interaction notification source failed", zap.String("user_id", userID), zap.Error(intErr))
	}
	if sysErr != nil && intErr != nil {
		return nil, fmt.Errorf("notification feed: %w", sysErr)
	}

	merged := make([]*Notification, 0, len(system)+len(interactions))
	merged = append(merged, system...)
	merged = append(merged, interactions...)
	SortNotifications(merged)
	return merged, nil
}

// listInteractions loads the interaction source and enriches each record
// with the resolved sender identity and its display type.
func (s *NotificationService) listInteractions(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	interactions, err := s.repo.ListInteractionNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for _, n := range interactions {
		n.Source = SourceInteraction
		n.Type = DisplayTypeForAction(n.ActionType)
		if n.SenderID == "" {
			continue
		}
		senderType := n.SenderAccountType
		identity := s.resolver.Resolve(ctx, n.SenderID, senderType)
		n.SenderName = identity.DisplayName
		if n.SenderAvatar == "" {
			n.SenderAvatar = identity.AvatarURL
		}
	}
	return interactions, nil
}

// MarkRead marks one feed item read. When the caller knows the source tag
// the update goes straight to that collection; an untagged id probes the
// system source first and falls back to the interaction source, because the
// unified feed hides which collection an id belongs to.
func (s *NotificationService) MarkRead(ctx context.Context, id string, source NotificationSource) error {
	now := time.Now().UTC()
	switch source {
	case SourceSystem:
		return s.repo.MarkSystemRead(ctx, id, now)
	case SourceInteraction:
		return s.repo.MarkInteractionRead(ctx, id)
	default:
		if err := s.repo.MarkSystemRead(ctx, id, now); err == nil {
			return nil
		} else if !errors.Is(err, ErrNotificationNotFound) {
			return err
		}
		return s.repo.MarkInteractionRead(ctx, id)
	}
}

// MarkAllRead marks every currently-unread item in the merged feed, in
// parallel, regardless of source. Individual failures are collected; the
// rest still complete.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	feed, err := s.Feed(ctx, userID, markAllFeedLimit)
	if err != nil {
		return err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, n := range feed {
		if n.IsRead {
			continue
		}
		wg.Add(1)
		go func(n *Notification) {
			defer wg.Done()
			if err := s.MarkRead(ctx, n.ID, n.Source); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				s.logger.Warn("mark read failed",
					zap.String("notification_id", n.ID),
					zap.String("source", string(n.Source)),
					zap.Error(err),
				)
			}
		}(n)
	}
	wg.Wait()

	s.bus.Publish(realtime.TopicSystemFeed(userID))
	s.bus.Publish(realtime.TopicInteractionFeed(userID))
	return firstErr
}

// CreateSystem writes a system notification and pushes it. Producers
// elsewhere in the platform normally write these rows; this entry point
// covers in-process producers and seeding.
func (s *NotificationService) CreateSystem(ctx context.Context, n *Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("create notification: missing recipient")
	}
	now := time.Now().UTC()
	n.ID = uuid.New().String()
	n.Source = SourceSystem
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	n.CreatedAt = now
	n.UpdatedAt = now

	if err := s.repo.CreateSystemNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.bus.Publish(realtime.TopicSystemFeed(n.UserID))
	s.push(n)
	return nil
}

// CreateInteraction writes an interaction notification and pushes it.
func (s *NotificationService) CreateInteraction(ctx context.Context, n *Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("create notification: missing recipient")
	}
	now := time.Now().UTC()
	n.ID = uuid.New().String()
	n.Source = SourceInteraction
	n.Type = DisplayTypeForAction(n.ActionType)
	n.CreatedAt = now
	n.UpdatedAt = now

	if err := s.repo.CreateInteractionNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.bus.Publish(realtime.TopicInteractionFeed(n.UserID))
	s.push(n)
	return nil
}

// RegisterDeviceToken stores a push token for the user. Idempotent.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if token == "" {
		return fmt.Errorf("register device token: missing token")
	}
	return s.repo.RegisterDeviceToken(ctx, userID, token)
}

// push fans the notification out to the recipient's device tokens.
func (s *NotificationService) push(n *Notification) {
	if s.pusher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tokens, err := s.repo.GetDeviceTokens(ctx, n.UserID)
		if err != nil {
			s.logger.Warn("device token lookup failed", zap.String("user_id", n.UserID), zap.Error(err))
			return
		}
		data := map[string]string{
			"notification_id": n.ID,
			"source":          string(n.Source),
			"type":            string(n.Type),
		}
		if n.Link != "" {
			data["link"] = n.Link
		}
		for _, token := range tokens {
			if token == "" {
				continue
			}
			if err := s.pusher.Push(ctx, token, n.Title, n.Message, data); err != nil {
				s.logger.Warn("push delivery failed", zap.String("user_id", n.UserID), zap.Error(err))
			}
		}
	}()
}

// FeedWatch is a standing subscription over the merged feed. The two
// sources are watched independently: an error on one is reported on Errs
// while the feed keeps rendering from the other.
type FeedWatch struct {
	service *NotificationService
	userID  string
	sysSub  *realtime.Subscription
	intSub  *realtime.Subscription
	updates chan []*Notification
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func (w *FeedWatch) Updates() <-chan []*Notification { return w.updates }
func (w *FeedWatch) Errs() <-chan error              { return w.errs }

// Stop tears down both source subscriptions. Idempotent.
func (w *FeedWatch) Stop() {
	w.once.Do(func() {
		w.sysSub.Stop()
		w.intSub.Stop()
		close(w.done)
	})
}

// Watch opens a live merged feed for the user.
func (s *NotificationService) Watch(ctx context.Context, userID string) (*FeedWatch, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	sysSub := s.bus.Subscribe(realtime.TopicSystemFeed(userID))
	if err := sysSub.Start(); err != nil {
		return nil, err
	}
	intSub := s.bus.Subscribe(realtime.TopicInteractionFeed(userID))
	if err := intSub.Start(); err != nil {
		sysSub.Stop()
		return nil, err
	}

	w := &FeedWatch{
		service: s,
		userID:  userID,
		sysSub:  sysSub,
		intSub:  intSub,
		updates: make(chan []*Notification, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

func (w *FeedWatch) loop(ctx context.Context) {
	emit := func() {
		feed, err := w.service.Feed(ctx, w.userID, 0)
		if err != nil {
			select {
			case w.errs <- err:
			default:
			}
			return
		}
		select {
		case w.updates <- feed:
		case <-w.done:
		case <-ctx.Done():
		}
	}

	emit()
	for {
		select {
		case <-w.sysSub.Signals():
			emit()
		case <-w.intSub.Signals():
			emit()
		case <-w.done:
			return
		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}
