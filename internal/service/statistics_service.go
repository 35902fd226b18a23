package service

import (
	"context"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor model.Identity, startDate, endDate time.Time) (model.ReviewStatistics, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

var decisionActions = []string{
	model.ActionApproveDocument,
	model.ActionRejectDocument,
	model.ActionApproveOnboarding,
	model.ActionRejectOnboarding,
}

// GetStatistics summarizes the review queues and the decisions recorded between startDate and endDate
func (s *statisticsService) GetStatistics(ctx context.Context, actor model.Identity, startDate, endDate time.Time) (model.ReviewStatistics, error) {
	var stats model.ReviewStatistics
	if actor.IsZero() {
		return stats, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return stats, ErrForbidden
	}
	if endDate.Before(startDate) {
		return stats, ErrInvalidInput
	}
	stats.TimeRangeStartDate = startDate
	stats.TimeRangeEndDate = endDate

	var err error
	if stats.Employees, err = s.repo.CountUsers(ctx, model.RoleEmployee); err != nil {
		return stats, err
	}
	if stats.DocumentsByStatus, err = s.repo.CountDocumentsByStatus(ctx); err != nil {
		return stats, err
	}
	if stats.OnboardingByStatus, err = s.repo.CountOnboardingByStatus(ctx); err != nil {
		return stats, err
	}
	if stats.PendingDocumentTypes, err = s.repo.CountPendingDocumentsByType(ctx); err != nil {
		return stats, err
	}
	if stats.DecisionsInRange, err = s.repo.CountActions(ctx, decisionActions, startDate, endDate); err != nil {
		return stats, err
	}
	return stats, nil
}
