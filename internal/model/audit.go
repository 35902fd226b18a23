package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateUser        = "CREATE_USER"
	ActionUploadDocument    = "UPLOAD_DOCUMENT"
	ActionApproveDocument   = "APPROVE_DOCUMENT"
	ActionRejectDocument    = "REJECT_DOCUMENT"
	ActionSubmitOnboarding  = "SUBMIT_ONBOARDING"
	ActionApproveOnboarding = "APPROVE_ONBOARDING"
	ActionRejectOnboarding  = "REJECT_ONBOARDING"
)

// AuditLog tracks who changed what across the system. It complements the per-document review trail.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
