package repository

import (
	"context"
	"time"

	"hrportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmailJobRepository interface {
	Create(ctx context.Context, job *model.EmailJob) error
	// FindDue returns pending jobs whose next attempt time has passed, oldest first
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.EmailJob, error)
	// Claim moves a pending job to sending. It returns false when another worker got there first.
	Claim(ctx context.Context, id uuid.UUID, attempts int, now time.Time) (bool, error)
	// Reclaim puts jobs claimed before staleBefore back to pending, due at now.
	// A worker that died mid-send leaves its job in sending otherwise.
	Reclaim(ctx context.Context, staleBefore, now time.Time) (int64, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
}

type emailJobRepository struct {
	db *gorm.DB
}

func NewEmailJobRepository(db *gorm.DB) EmailJobRepository {
	return &emailJobRepository{db: db}
}

func (r *emailJobRepository) Create(ctx context.Context, job *model.EmailJob) error {
	return GetDB(ctx, r.db).Create(job).Error
}

func (r *emailJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.EmailJob, error) {
	var jobs []model.EmailJob
	err := GetDB(ctx, r.db).
		Where("status = ? AND next_attempt_at <= ?", model.EmailJobPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *emailJobRepository) Claim(ctx context.Context, id uuid.UUID, attempts int, now time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.EmailJob{}).
		Where("id = ? AND status = ? AND attempts = ?", id, model.EmailJobPending, attempts).
		Updates(map[string]interface{}{
			"status":     model.EmailJobSending,
			"updated_at": now,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *emailJobRepository) Reclaim(ctx context.Context, staleBefore, now time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.EmailJob{}).
		Where("status = ? AND updated_at < ?", model.EmailJobSending, staleBefore).
		Updates(map[string]interface{}{
			"status":          model.EmailJobPending,
			"next_attempt_at": now,
			"updated_at":      now,
		})
	return res.RowsAffected, res.Error
}

func (r *emailJobRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return GetDB(ctx, r.db).Model(&model.EmailJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.EmailJobSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"sent_at":    sentAt,
			"last_error": "",
			"updated_at": time.Now(),
		}).Error
}

func (r *emailJobRepository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastErr string) error {
	return GetDB(ctx, r.db).Model(&model.EmailJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.EmailJobPending,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
			"updated_at":      time.Now(),
		}).Error
}

func (r *emailJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return GetDB(ctx, r.db).Model(&model.EmailJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.EmailJobFailed,
			"attempts":   attempts,
			"last_error": lastErr,
			"updated_at": time.Now(),
		}).Error
}
