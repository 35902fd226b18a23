package repository

import (
	"context"
	"fmt"
	"time"

	"hrportal/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountUsers(ctx context.Context, role string) (int64, error)
	CountDocumentsByStatus(ctx context.Context) ([]model.StatusCount, error)
	CountOnboardingByStatus(ctx context.Context) ([]model.StatusCount, error)
	CountPendingDocumentsByType(ctx context.Context) ([]model.TypeCount, error)
	CountActions(ctx context.Context, actions []string, start, end time.Time) ([]model.ActionCount, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountUsers(ctx context.Context, role string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *statisticsRepository) CountDocumentsByStatus(ctx context.Context) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.db.WithContext(ctx).Model(&model.Document{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents by status: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) CountOnboardingByStatus(ctx context.Context) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.db.WithContext(ctx).Model(&model.OnboardingApplication{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count onboarding applications by status: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) CountPendingDocumentsByType(ctx context.Context) ([]model.TypeCount, error) {
	var rows []model.TypeCount
	if err := r.db.WithContext(ctx).Model(&model.Document{}).
		Select("type, COUNT(*) as count").
		Where("status = ?", model.DocumentPending).
		Group("type").
		Order("count DESC, type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending documents by type: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) CountActions(ctx context.Context, actions []string, start, end time.Time) ([]model.ActionCount, error) {
	var rows []model.ActionCount
	if err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Select("action, COUNT(*) as count").
		Where("action IN ? AND created_at >= ? AND created_at <= ?", actions, start, end).
		Group("action").
		Order("action").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit actions: %w", err)
	}
	return rows, nil
}
