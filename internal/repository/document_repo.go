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

// DocumentFilter selects documents. Zero-valued fields are ignored.
type DocumentFilter struct {
	ID       *uuid.UUID
	UserID   *uuid.UUID
	Type     model.DocumentType
	Category model.DocumentCategory
	Statuses []model.DocumentStatus
}

// DocumentCondition is the compare part of a compare-and-swap write.
// The row must have this id and version, and one of Statuses when set.
type DocumentCondition struct {
	ID       uuid.UUID
	Version  int
	Statuses []model.DocumentStatus
}

// DocumentPatch lists the columns to change. Nil pointers are left untouched.
// A zero UpdatedAt stamps the row with the wall clock.
type DocumentPatch struct {
	Status     model.DocumentStatus
	FileName   *string
	FileURL    *string
	UploadedAt *time.Time
	HRFeedback *string
	ReviewedAt *time.Time
	ReviewedBy *uuid.UUID
	Audit      datatypes.JSONSlice[model.AuditEntry]
	UpdatedAt  time.Time
}

func (p DocumentPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": stamp(p.UpdatedAt),
	}
	if p.Status != "" {
		cols["status"] = p.Status
	}
	if p.FileName != nil {
		cols["file_name"] = *p.FileName
	}
	if p.FileURL != nil {
		cols["file_url"] = *p.FileURL
	}
	if p.UploadedAt != nil {
		cols["uploaded_at"] = *p.UploadedAt
	}
	if p.HRFeedback != nil {
		cols["hr_feedback"] = *p.HRFeedback
	}
	if p.ReviewedAt != nil {
		cols["reviewed_at"] = *p.ReviewedAt
	}
	if p.ReviewedBy != nil {
		cols["reviewed_by"] = *p.ReviewedBy
	}
	if p.Audit != nil {
		cols["audit"] = p.Audit
	}
	return cols
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

type DocumentRepository interface {
	// FindOne returns nil, nil when nothing matches
	FindOne(ctx context.Context, filter DocumentFilter) (*model.Document, error)
	FindMany(ctx context.Context, filter DocumentFilter, page, limit int) ([]model.Document, int64, error)
	Create(ctx context.Context, doc *model.Document) error
	// ConditionalUpdate applies patch and bumps the version only when cond still
	// holds. It returns nil, nil when no row matched.
	ConditionalUpdate(ctx context.Context, cond DocumentCondition, patch DocumentPatch) (*model.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func applyDocumentFilter(q *gorm.DB, f DocumentFilter) *gorm.DB {
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	return q
}

func (r *documentRepository) FindOne(ctx context.Context, filter DocumentFilter) (*model.Document, error) {
	var doc model.Document
	err := applyDocumentFilter(GetDB(ctx, r.db), filter).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindMany(ctx context.Context, filter DocumentFilter, page, limit int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyDocumentFilter(db.Model(&model.Document{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyDocumentFilter(db, filter).Order("created_at DESC")
	if err := paginate(q, page, limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return translateCreateError(GetDB(ctx, r.db).Create(doc).Error)
}

func (r *documentRepository) ConditionalUpdate(ctx context.Context, cond DocumentCondition, patch DocumentPatch) (*model.Document, error) {
	db := GetDB(ctx, r.db)

	q := db.Model(&model.Document{}).Where("id = ? AND version = ?", cond.ID, cond.Version)
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

	var doc model.Document
	if err := db.Take(&doc, "id = ?", cond.ID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}
