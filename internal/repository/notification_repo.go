package repository

import (
	"context"
	"time"

	"hrportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	// MarkRead returns false when the notification does not belong to userID
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("read_at IS NULL")
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(db.Scopes(scope).Order("created_at DESC"), page, limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err := db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now()).Error
	return err == nil, err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now())
	return res.RowsAffected, res.Error
}
