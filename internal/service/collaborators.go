package service

import (
	"context"
	"encoding/json"
	"time"

	"hrportal/internal/model"

	"github.com/google/uuid"
)

// Notifier delivers in-app notifications. Callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]interface{}) error
}

// EmailQueue accepts outbound emails for asynchronous, retried delivery
type EmailQueue interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// FileStorage issues presigned URLs against the document bucket
type FileStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	ObjectKey(userID uuid.UUID, docType model.DocumentType, fileName string) string
	// OwnsKey reports whether key was issued under userID's folder for docType
	OwnsKey(userID uuid.UUID, docType model.DocumentType, key string) bool
	Expiry() time.Duration
}

// auditDetails serializes the details column of a system audit row
func auditDetails(v map[string]interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func ptr[T any](v T) *T {
	return &v
}
