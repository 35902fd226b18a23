package service

import (
	"context"
	"fmt"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor model.Identity, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns system audit rows newest first, with the acting user resolved
func (s *auditService) GetAuditLogs(ctx context.Context, actor model.Identity, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	if actor.IsZero() {
		return nil, 0, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, 0, ErrForbidden
	}

	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}

	return res, total, nil
}
