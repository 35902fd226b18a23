package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentIDCard       DocumentType = "id_card"
	DocumentWorkAuth     DocumentType = "work_auth"
	DocumentProfilePhoto DocumentType = "profile_photo"
	DocumentOPTReceipt   DocumentType = "opt_receipt"
	DocumentOPTEAD       DocumentType = "opt_ead"
	DocumentI983         DocumentType = "i_983"
	DocumentI20          DocumentType = "i_20"
)

type DocumentCategory string

const (
	CategoryOnboarding DocumentCategory = "onboarding"
	CategoryVisa       DocumentCategory = "visa"
)

type DocumentStatus string

const (
	DocumentNotStarted DocumentStatus = "not_started"
	DocumentPending    DocumentStatus = "pending"
	DocumentApproved   DocumentStatus = "approved"
	DocumentRejected   DocumentStatus = "rejected"
)

var documentCategories = map[DocumentType]DocumentCategory{
	DocumentIDCard:       CategoryOnboarding,
	DocumentWorkAuth:     CategoryOnboarding,
	DocumentProfilePhoto: CategoryOnboarding,
	DocumentOPTReceipt:   CategoryVisa,
	DocumentOPTEAD:       CategoryVisa,
	DocumentI983:         CategoryVisa,
	DocumentI20:          CategoryVisa,
}

// Category returns the group a document type belongs to. ok is false for unknown types.
func (t DocumentType) Category() (DocumentCategory, bool) {
	c, ok := documentCategories[t]
	return c, ok
}

func (c DocumentCategory) Valid() bool {
	return c == CategoryOnboarding || c == CategoryVisa
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentNotStarted, DocumentPending, DocumentApproved, DocumentRejected:
		return true
	}
	return false
}

// AuditActor is a snapshot of the reviewer at decision time
type AuditActor struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// AuditEntry is one immutable review decision recorded on a document
type AuditEntry struct {
	Action   DocumentStatus `json:"action"`
	By       AuditActor     `json:"by"`
	At       time.Time      `json:"at"`
	Feedback *string        `json:"feedback"`
}

// Document is a single uploaded file of a given type owned by one employee.
// (user_id, type) is unique; Version is bumped by every mutation.
type Document struct {
	ID         uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_documents_user_type" json:"user_id"`
	Type       DocumentType                    `gorm:"type:varchar(32);not null;uniqueIndex:idx_documents_user_type" json:"type"`
	Category   DocumentCategory                `gorm:"type:varchar(16);not null;index" json:"category"`
	Status     DocumentStatus                  `gorm:"type:varchar(16);not null;index" json:"status"`
	FileName   string                          `gorm:"type:varchar(255)" json:"file_name"`
	FileURL    string                          `gorm:"type:varchar(1024)" json:"file_url"`
	UploadedAt *time.Time                      `json:"uploaded_at"`
	HRFeedback string                          `gorm:"type:text" json:"hr_feedback"`
	ReviewedAt *time.Time                      `json:"reviewed_at"`
	ReviewedBy *uuid.UUID                      `gorm:"type:uuid" json:"reviewed_by"`
	Audit      datatypes.JSONSlice[AuditEntry] `gorm:"not null" json:"audit"`
	Version    int                             `gorm:"not null" json:"version"`
	CreatedAt  time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Audit == nil {
		d.Audit = datatypes.JSONSlice[AuditEntry]{}
	}
	return nil
}
