package repository

import (
	"context"
	"errors"
	"time"

	"hrportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OnboardingFilter struct {
	ID       *uuid.UUID
	UserID   *uuid.UUID
	Statuses []model.OnboardingStatus
}

type OnboardingCondition struct {
	ID       uuid.UUID
	Version  int
	Statuses []model.OnboardingStatus
}

type OnboardingPatch struct {
	Status      model.OnboardingStatus
	FormData    datatypes.JSON
	HRFeedback  *string
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	ReviewedBy  *uuid.UUID
	UpdatedAt   time.Time
}

func (p OnboardingPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": stamp(p.UpdatedAt),
	}
	if p.Status != "" {
		cols["status"] = p.Status
	}
	if p.FormData != nil {
		cols["form_data"] = p.FormData
	}
	if p.HRFeedback != nil {
		cols["hr_feedback"] = *p.HRFeedback
	}
	if p.SubmittedAt != nil {
		cols["submitted_at"] = *p.SubmittedAt
	}
	if p.ReviewedAt != nil {
		cols["reviewed_at"] = *p.ReviewedAt
	}
	if p.ReviewedBy != nil {
		cols["reviewed_by"] = *p.ReviewedBy
	}
	return cols
}

type OnboardingRepository interface {
	FindOne(ctx context.Context, filter OnboardingFilter) (*model.OnboardingApplication, error)
	FindMany(ctx context.Context, filter OnboardingFilter, page, limit int) ([]model.OnboardingApplication, int64, error)
	Create(ctx context.Context, app *model.OnboardingApplication) error
	ConditionalUpdate(ctx context.Context, cond OnboardingCondition, patch OnboardingPatch) (*model.OnboardingApplication, error)
}

type onboardingRepository struct {
	db *gorm.DB
}

func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &onboardingRepository{db: db}
}

func applyOnboardingFilter(q *gorm.DB, f OnboardingFilter) *gorm.DB {
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	return q
}

func (r *onboardingRepository) FindOne(ctx context.Context, filter OnboardingFilter) (*model.OnboardingApplication, error) {
	var app model.OnboardingApplication
	err := applyOnboardingFilter(GetDB(ctx, r.db), filter).Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *onboardingRepository) FindMany(ctx context.Context, filter OnboardingFilter, page, limit int) ([]model.OnboardingApplication, int64, error) {
	var apps []model.OnboardingApplication
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyOnboardingFilter(db.Model(&model.OnboardingApplication{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyOnboardingFilter(db, filter).Order("submitted_at DESC")
	if err := paginate(q, page, limit).Find(&apps).Error; err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

func (r *onboardingRepository) Create(ctx context.Context, app *model.OnboardingApplication) error {
	return translateCreateError(GetDB(ctx, r.db).Create(app).Error)
}

func (r *onboardingRepository) ConditionalUpdate(ctx context.Context, cond OnboardingCondition, patch OnboardingPatch) (*model.OnboardingApplication, error) {
	db := GetDB(ctx, r.db)

	q := db.Model(&model.OnboardingApplication{}).Where("id = ? AND version = ?", cond.ID, cond.Version)
	if len(cond.Statuses) > 0 {
		q = q.Where("status IN ?", cond.Statuses)
	}
	res := q.Updates(patch.columns())
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var app model.OnboardingApplication
	if err := db.Take(&app, "id = ?", cond.ID).Error; err != nil {
		return nil, err
	}
	return &app, nil
}
