package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/events"
)

// Notifier is the side of the service other modules depend on.
type Notifier interface {
	// Notify stores an inbox entry for userID and queues outbound delivery.
	Notify(ctx context.Context, userID uuid.UUID, msg Message) error
	// NotifyAdmins sends msg to every active administrator.
	NotifyAdmins(ctx context.Context, msg Message) error
}

// Service defines the notification inbox and fan-out logic.
type Service interface {
	Notifier
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo      Repository
	publisher events.Publisher
	topic     string
	logger    *zap.Logger
}

func NewService(repo Repository, publisher events.Publisher, topic string, logger *zap.Logger) Service {
	return &service{repo: repo, publisher: publisher, topic: topic, logger: logger}
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, msg Message) error {
	n := &Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   msg.Type,
		Title:  msg.Title,
		Body:   msg.Body,
		Link:   msg.Link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	rc, err := s.repo.Recipient(ctx, userID)
	if err != nil {
		s.logger.Warn("notification recipient lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}

	channels := []Channel{ChannelEmail}
	if msg.SMS && rc.Phone != "" {
		channels = append(channels, ChannelSMS)
	}
	ev := Event{
		NotificationID: n.ID,
		UserID:         userID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		Link:           n.Link,
		Name:           rc.Name,
		Email:          rc.Email,
		Phone:          rc.Phone,
		Channels:       channels,
		CreatedAt:      n.CreatedAt,
	}
	// the inbox row is the source of truth; outbound delivery is best effort
	if err := s.publisher.Publish(ctx, s.topic, userID.String(), ev); err != nil {
		s.logger.Warn("notification event not published",
			zap.String("notification_id", n.ID.String()),
			zap.String("trace_id", events.TraceID(ctx)),
			zap.Error(err),
		)
	}
	return nil
}

func (s *service) NotifyAdmins(ctx context.Context, msg Message) error {
	ids, err := s.repo.AdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	var firstErr error
	for _, id := range ids {
		if err := s.Notify(ctx, id, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, f)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notification")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
