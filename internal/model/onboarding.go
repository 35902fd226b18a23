package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OnboardingStatus string

const (
	OnboardingNeverSubmitted OnboardingStatus = "never_submitted"
	OnboardingPending        OnboardingStatus = "pending"
	OnboardingApproved       OnboardingStatus = "approved"
	OnboardingRejected       OnboardingStatus = "rejected"
)

// OnboardingApplication holds the personal-information form an employee submits once per account
type OnboardingApplication struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Status      OnboardingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	FormData    datatypes.JSON   `json:"form_data"`
	HRFeedback  string           `gorm:"type:text" json:"hr_feedback"`
	SubmittedAt *time.Time       `json:"submitted_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at"`
	ReviewedBy  *uuid.UUID       `gorm:"type:uuid" json:"reviewed_by"`
	Version     int              `gorm:"not null" json:"version"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *OnboardingApplication) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
