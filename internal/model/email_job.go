package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EmailDocumentRejected   = "document_rejected"
	EmailOnboardingRejected = "onboarding_rejected"
)

const (
	EmailJobPending = "pending"
	EmailJobSending = "sending"
	EmailJobSent    = "sent"
	EmailJobFailed  = "failed"
)

// EmailJob is a queued outbound email. The worker retries it until MaxAttempts is reached.
type EmailJob struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          string         `gorm:"type:varchar(50);not null" json:"kind"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	Status        string         `gorm:"type:varchar(20);not null;index:idx_email_jobs_due" json:"status"`
	Attempts      int            `gorm:"not null" json:"attempts"`
	MaxAttempts   int            `gorm:"not null" json:"max_attempts"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_email_jobs_due" json:"next_attempt_at"`
	LastError     string         `gorm:"type:text" json:"last_error,omitempty"`
	SentAt        *time.Time     `json:"sent_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (j *EmailJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// DocumentRejectedEmail is the payload of an EmailDocumentRejected job
type DocumentRejectedEmail struct {
	Recipient    string `json:"recipient"`
	DocumentType string `json:"documentType"`
	ReviewerName string `json:"reviewerName"`
	Feedback     string `json:"feedback"`
}

// OnboardingRejectedEmail is the payload of an EmailOnboardingRejected job
type OnboardingRejectedEmail struct {
	Recipient    string `json:"recipient"`
	ReviewerName string `json:"reviewerName"`
	Feedback     string `json:"feedback"`
}
