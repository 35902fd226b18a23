package service

import (
	"context"
	"encoding/json"
	"fmt"

	"hrportal/internal/model"
	"hrportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Pusher delivers a live payload to every open connection of a user
type Pusher interface {
	SendToUser(userID string, payload []byte)
}

type NotificationResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	ReadAt    *string         `json:"read_at"`
	CreatedAt string          `json:"created_at"`
}

type NotificationEvent struct {
	Type         string               `json:"type"`
	Notification NotificationResponse `json:"notification"`
}

type NotificationService interface {
	Notifier
	ListNotifications(ctx context.Context, actor model.Identity, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor model.Identity, id string) error
	MarkAllRead(ctx context.Context, actor model.Identity) (int64, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	pusher Pusher
}

func NewNotificationService(repo repository.NotificationRepository, pusher Pusher) NotificationService {
	return &notificationService{repo: repo, pusher: pusher}
}

// Notify persists the notification, then pushes it to the user's live connections
func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]interface{}) error {
	n := &model.Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
		n.Data = datatypes.JSON(raw)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if s.pusher != nil {
		payload, err := json.Marshal(NotificationEvent{Type: "notification", Notification: toNotificationResponse(n)})
		if err != nil {
			return fmt.Errorf("failed to encode push payload: %w", err)
		}
		s.pusher.SendToUser(userID.String(), payload)
	}
	return nil
}

func (s *notificationService) ListNotifications(ctx context.Context, actor model.Identity, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if actor.IsZero() {
		return nil, 0, ErrUnauthenticated
	}
	items, total, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, toNotificationResponse(&items[i]))
	}
	return out, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor model.Identity, id string) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}
	nid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	ok, err := s.repo.MarkRead(ctx, actor.UserID, nid)
	if err != nil {
		return fmt.Errorf("failed to mark notification: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor model.Identity) (int64, error) {
	if actor.IsZero() {
		return 0, ErrUnauthenticated
	}
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications: %w", err)
	}
	return n, nil
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Data:      json.RawMessage(n.Data),
		Read:      n.ReadAt != nil,
		ReadAt:    formatTime(n.ReadAt),
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
