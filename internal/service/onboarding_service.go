package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ReviewOnboardingRequest struct {
	Decision string `json:"decision" binding:"required"`
	Feedback string `json:"feedback" binding:"max=2000"`
	Version  *int   `json:"version"`
}

type OnboardingListFilter struct {
	Status string
	Page   int
	Limit  int
}

type OnboardingResponse struct {
	ID          *string         `json:"id"`
	UserID      string          `json:"user_id"`
	Status      string          `json:"status"`
	FormData    json.RawMessage `json:"form_data"`
	HRFeedback  string          `json:"hr_feedback"`
	SubmittedAt *string         `json:"submitted_at"`
	ReviewedAt  *string         `json:"reviewed_at"`
	ReviewedBy  *string         `json:"reviewed_by"`
	Version     int             `json:"version"`
}

type OnboardingService interface {
	SubmitOnboarding(ctx context.Context, actor model.Identity, formData json.RawMessage) (*OnboardingResponse, error)
	ReviewOnboarding(ctx context.Context, reviewer model.Identity, id string, req ReviewOnboardingRequest) (*OnboardingResponse, error)
	GetMyOnboarding(ctx context.Context, actor model.Identity) (*OnboardingResponse, error)
	GetOnboarding(ctx context.Context, actor model.Identity, id string) (*OnboardingResponse, error)
	ListOnboarding(ctx context.Context, actor model.Identity, filter OnboardingListFilter) ([]OnboardingResponse, int64, error)
}

type onboardingService struct {
	tx       repository.TransactionManager
	apps     repository.OnboardingRepository
	users    repository.UserRepository
	audits   repository.AuditRepository
	notifier Notifier
	emails   EmailQueue
	log      *zap.Logger
	now      func() time.Time
}

func NewOnboardingService(
	tx repository.TransactionManager,
	apps repository.OnboardingRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	notifier Notifier,
	emails EmailQueue,
	log *zap.Logger,
) OnboardingService {
	return &onboardingService{
		tx:       tx,
		apps:     apps,
		users:    users,
		audits:   audits,
		notifier: notifier,
		emails:   emails,
		log:      log,
		now:      time.Now,
	}
}

func (s *onboardingService) SubmitOnboarding(ctx context.Context, actor model.Identity, formData json.RawMessage) (*OnboardingResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if len(formData) == 0 || !json.Valid(formData) {
		return nil, fmt.Errorf("%w: form_data must be a JSON document", ErrInvalidInput)
	}

	now := s.now()
	var saved *model.OnboardingApplication
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.apps.FindOne(txCtx, repository.OnboardingFilter{UserID: &actor.UserID})
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}

		if current == nil {
			app := &model.OnboardingApplication{
				UserID:      actor.UserID,
				Status:      model.OnboardingPending,
				FormData:    datatypes.JSON(formData),
				SubmittedAt: &now,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.apps.Create(txCtx, app); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return ErrConcurrentModification
				}
				return fmt.Errorf("failed to create application: %w", err)
			}
			saved = app
		} else {
			next, err := workflow.NextOnboardingStatus(current.Status, workflow.TriggerSubmit)
			if err != nil {
				return fmt.Errorf("%w: Cannot submit when status is %s", ErrInvalidState, current.Status)
			}
			saved, err = s.apps.ConditionalUpdate(txCtx,
				repository.OnboardingCondition{ID: current.ID, Version: current.Version, Statuses: workflow.OnboardingSubmittable()},
				repository.OnboardingPatch{
					Status:      next,
					FormData:    datatypes.JSON(formData),
					HRFeedback:  ptr(""),
					SubmittedAt: &now,
					UpdatedAt:   now,
				})
			if err != nil {
				return fmt.Errorf("failed to save application: %w", err)
			}
			if saved == nil {
				return ErrConcurrentModification
			}
		}

		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionSubmitOnboarding,
			EntityID:   saved.ID.String(),
			EntityName: actor.Username,
			Details:    auditDetails(map[string]interface{}{"version": saved.Version}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyReviewers(ctx, saved, actor)
	return toOnboardingResponse(saved), nil
}

// notifyReviewers tells every HR account that an application is waiting
func (s *onboardingService) notifyReviewers(ctx context.Context, app *model.OnboardingApplication, actor model.Identity) {
	ctx = context.WithoutCancel(ctx)
	reviewers, _, err := s.users.List(ctx, model.RoleHR, 1, 100)
	if err != nil {
		s.log.Warn("Failed to list reviewers for notification", zap.Error(err))
		return
	}
	for _, r := range reviewers {
		err := s.notifier.Notify(ctx, r.ID, model.NotificationOnboardingSubmitted,
			"Onboarding application submitted",
			fmt.Sprintf("%s submitted an onboarding application for review.", actor.Username),
			map[string]interface{}{"application_id": app.ID.String(), "user_id": app.UserID.String()})
		if err != nil {
			s.log.Warn("Failed to deliver notification",
				zap.String("user_id", r.ID.String()),
				zap.String("kind", model.NotificationOnboardingSubmitted),
				zap.Error(err))
		}
	}
}

func (s *onboardingService) ReviewOnboarding(ctx context.Context, reviewer model.Identity, id string, req ReviewOnboardingRequest) (*OnboardingResponse, error) {
	trigger, ok := workflow.DecisionTrigger(req.Decision)
	if !ok {
		return nil, ErrInvalidDecision
	}
	if reviewer.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !reviewer.CanReview() {
		return nil, ErrForbidden
	}
	appID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}

	now := s.now()
	var updated *model.OnboardingApplication
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.apps.FindOne(txCtx, repository.OnboardingFilter{ID: &appID})
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		if current == nil {
			return fmt.Errorf("%w: application %s", ErrNotFound, id)
		}
		next, err := workflow.NextOnboardingStatus(current.Status, trigger)
		if err != nil {
			return fmt.Errorf("%w: Only pending applications can be reviewed", ErrInvalidState)
		}
		observed := current.Version
		if req.Version != nil {
			if *req.Version != current.Version {
				return ErrConcurrentModification
			}
			observed = *req.Version
		}

		patch := repository.OnboardingPatch{Status: next, ReviewedAt: &now, ReviewedBy: &reviewer.UserID, UpdatedAt: now}
		if next == model.OnboardingRejected {
			patch.HRFeedback = ptr(req.Feedback)
		}

		updated, err = s.apps.ConditionalUpdate(txCtx,
			repository.OnboardingCondition{ID: appID, Version: observed, Statuses: []model.OnboardingStatus{model.OnboardingPending}},
			patch)
		if err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}
		if updated == nil {
			return ErrConcurrentModification
		}

		action := model.ActionApproveOnboarding
		if next == model.OnboardingRejected {
			action = model.ActionRejectOnboarding
		}
		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:     &reviewer.UserID,
			Action:     action,
			EntityID:   updated.ID.String(),
			EntityName: "onboarding_application",
			Details:    auditDetails(map[string]interface{}{"owner_id": updated.UserID.String(), "feedback": req.Feedback}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterReview(ctx, updated, reviewer)
	return toOnboardingResponse(updated), nil
}

func (s *onboardingService) afterReview(ctx context.Context, app *model.OnboardingApplication, reviewer model.Identity) {
	ctx = context.WithoutCancel(ctx)

	title := "Onboarding application approved"
	message := "Your onboarding application was approved."
	if app.Status == model.OnboardingRejected {
		title = "Onboarding application rejected"
		message = "Your onboarding application was rejected. Please update it and submit again."
	}
	err := s.notifier.Notify(ctx, app.UserID, model.NotificationOnboardingReviewed, title, message, map[string]interface{}{
		"application_id": app.ID.String(),
		"status":         app.Status,
		"feedback":       app.HRFeedback,
	})
	if err != nil {
		s.log.Warn("Failed to deliver notification",
			zap.String("user_id", app.UserID.String()),
			zap.String("kind", model.NotificationOnboardingReviewed),
			zap.Error(err))
	}

	if app.Status != model.OnboardingRejected {
		return
	}
	owner, err := s.users.GetByID(ctx, app.UserID)
	if err != nil || owner.Email == "" {
		s.log.Warn("Skipping rejection email, owner email unknown",
			zap.String("application_id", app.ID.String()),
			zap.Error(err))
		return
	}
	payload := model.OnboardingRejectedEmail{
		Recipient:    owner.Email,
		ReviewerName: reviewer.Username,
		Feedback:     app.HRFeedback,
	}
	if err := s.emails.Enqueue(ctx, model.EmailOnboardingRejected, payload); err != nil {
		s.log.Warn("Failed to enqueue rejection email",
			zap.String("application_id", app.ID.String()),
			zap.Error(err))
	}
}

func (s *onboardingService) GetMyOnboarding(ctx context.Context, actor model.Identity) (*OnboardingResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	app, err := s.apps.FindOne(ctx, repository.OnboardingFilter{UserID: &actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return &OnboardingResponse{
			UserID: actor.UserID.String(),
			Status: string(model.OnboardingNeverSubmitted),
		}, nil
	}
	return toOnboardingResponse(app), nil
}

func (s *onboardingService) GetOnboarding(ctx context.Context, actor model.Identity, id string) (*OnboardingResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, ErrForbidden
	}
	appID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}
	app, err := s.apps.FindOne(ctx, repository.OnboardingFilter{ID: &appID})
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}
	return toOnboardingResponse(app), nil
}

func (s *onboardingService) ListOnboarding(ctx context.Context, actor model.Identity, filter OnboardingListFilter) ([]OnboardingResponse, int64, error) {
	if actor.IsZero() {
		return nil, 0, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, 0, ErrForbidden
	}

	f := repository.OnboardingFilter{}
	if filter.Status != "" {
		status := model.OnboardingStatus(filter.Status)
		switch status {
		case model.OnboardingPending, model.OnboardingApproved, model.OnboardingRejected:
			f.Statuses = []model.OnboardingStatus{status}
		default:
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
		}
	}

	apps, total, err := s.apps.FindMany(ctx, f, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	out := make([]OnboardingResponse, 0, len(apps))
	for i := range apps {
		out = append(out, *toOnboardingResponse(&apps[i]))
	}
	return out, total, nil
}

func toOnboardingResponse(a *model.OnboardingApplication) *OnboardingResponse {
	res := &OnboardingResponse{
		ID:          ptr(a.ID.String()),
		UserID:      a.UserID.String(),
		Status:      string(a.Status),
		FormData:    json.RawMessage(a.FormData),
		HRFeedback:  a.HRFeedback,
		SubmittedAt: formatTime(a.SubmittedAt),
		ReviewedAt:  formatTime(a.ReviewedAt),
		Version:     a.Version,
	}
	if a.ReviewedBy != nil {
		res.ReviewedBy = ptr(a.ReviewedBy.String())
	}
	return res
}
