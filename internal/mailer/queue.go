package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"

	"gorm.io/datatypes"
)

// Queue persists email jobs for the Worker to deliver
type Queue struct {
	repo        repository.EmailJobRepository
	maxAttempts int
	now         func() time.Time
}

func NewQueue(repo repository.EmailJobRepository, maxAttempts int) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{repo: repo, maxAttempts: maxAttempts, now: time.Now}
}

// Enqueue stores a pending job that is due immediately
func (q *Queue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}
	job := &model.EmailJob{
		Kind:          kind,
		Payload:       datatypes.JSON(raw),
		Status:        model.EmailJobPending,
		MaxAttempts:   q.maxAttempts,
		NextAttemptAt: q.now(),
	}
	if err := q.repo.Create(ctx, job); err != nil {
		return fmt.Errorf("store email job: %w", err)
	}
	return nil
}
