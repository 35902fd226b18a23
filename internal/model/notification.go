package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationDocumentUploaded    = "document_uploaded"
	NotificationDocumentReviewed    = "document_reviewed"
	NotificationOnboardingSubmitted = "onboarding_submitted"
	NotificationOnboardingReviewed  = "onboarding_reviewed"
)

// Notification is an in-app message for one user, pushed live when the user is connected
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string         `gorm:"type:varchar(50);not null" json:"kind"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	Data      datatypes.JSON `json:"data"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
