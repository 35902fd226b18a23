package repository

import (
	"context"

	"hrportal/internal/model"

	"gorm.io/gorm"
)

// AuditFilter narrows the system audit listing. Empty fields are ignored.
type AuditFilter struct {
	Action   string
	EntityID string
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Scopes(scope).Preload("User").Order("created_at desc")
	if err := paginate(q, page, limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
