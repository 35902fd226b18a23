package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// --- DTOs ---

type UploadDocumentRequest struct {
	Type     string `json:"type" binding:"required"`
	Category string `json:"category" binding:"required"`
	FileName string `json:"file_name" binding:"required,max=255"`
	FileURL  string `json:"file_url" binding:"max=1024"`
}

type ReviewDocumentRequest struct {
	Decision string `json:"decision" binding:"required"`
	Feedback string `json:"feedback" binding:"max=2000"`
	Version  *int   `json:"version" binding:"required"`
}

type UploadURLRequest struct {
	Type        string `json:"type" binding:"required"`
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type"`
}

type PresignedURLResponse struct {
	URL       string `json:"url"`
	FileURL   string `json:"file_url,omitempty"`
	ExpiresIn int    `json:"expires_in"`
}

type DocumentListFilter struct {
	Status   string
	Category string
	Type     string
	UserID   string
	Page     int
	Limit    int
}

type AuditEntryResponse struct {
	Action     string  `json:"action"`
	ByUserID   string  `json:"by_user_id"`
	ByUsername string  `json:"by_username"`
	At         string  `json:"at"`
	Feedback   *string `json:"feedback"`
}

type DocumentResponse struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Type       string               `json:"type"`
	Category   string               `json:"category"`
	Status     string               `json:"status"`
	FileName   string               `json:"file_name"`
	FileURL    string               `json:"file_url"`
	UploadedAt *string              `json:"uploaded_at"`
	HRFeedback string               `json:"hr_feedback"`
	ReviewedAt *string              `json:"reviewed_at"`
	ReviewedBy *string              `json:"reviewed_by"`
	Audit      []AuditEntryResponse `json:"audit"`
	Version    int                  `json:"version"`
	CreatedAt  string               `json:"created_at"`
	UpdatedAt  string               `json:"updated_at"`
}

type VisaStepResponse struct {
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	DocumentID *string `json:"document_id"`
	HRFeedback string  `json:"hr_feedback"`
}

type VisaProgressResponse struct {
	Steps       []VisaStepResponse `json:"steps"`
	CurrentStep *string            `json:"current_step"`
	CanUpload   bool               `json:"can_upload"`
	Reason      string             `json:"reason,omitempty"`
	Completed   bool               `json:"completed"`
}

// --- Interface ---

type DocumentService interface {
	UploadDocument(ctx context.Context, actor model.Identity, req UploadDocumentRequest) (*DocumentResponse, error)
	ReviewDocument(ctx context.Context, reviewer model.Identity, id string, req ReviewDocumentRequest) (*DocumentResponse, error)
	GetDocument(ctx context.Context, actor model.Identity, id string) (*DocumentResponse, error)
	ListMyDocuments(ctx context.Context, actor model.Identity) ([]DocumentResponse, error)
	ListDocuments(ctx context.Context, actor model.Identity, filter DocumentListFilter) ([]DocumentResponse, int64, error)
	GetVisaProgress(ctx context.Context, actor model.Identity) (*VisaProgressResponse, error)
	CreateUploadURL(ctx context.Context, actor model.Identity, req UploadURLRequest) (*PresignedURLResponse, error)
	CreateDownloadURL(ctx context.Context, actor model.Identity, id string) (*PresignedURLResponse, error)
}

type documentService struct {
	tx       repository.TransactionManager
	docs     repository.DocumentRepository
	users    repository.UserRepository
	audits   repository.AuditRepository
	notifier Notifier
	emails   EmailQueue
	storage  FileStorage
	log      *zap.Logger
	now      func() time.Time
}

func NewDocumentService(
	tx repository.TransactionManager,
	docs repository.DocumentRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	notifier Notifier,
	emails EmailQueue,
	storage FileStorage,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		tx:       tx,
		docs:     docs,
		users:    users,
		audits:   audits,
		notifier: notifier,
		emails:   emails,
		storage:  storage,
		log:      log,
		now:      time.Now,
	}
}

// --- Implementation ---

func (s *documentService) UploadDocument(ctx context.Context, actor model.Identity, req UploadDocumentRequest) (*DocumentResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	docType, category, err := parseTypeAndCategory(req.Type, req.Category)
	if err != nil {
		return nil, err
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file_name is required", ErrInvalidInput)
	}
	fileURL := strings.TrimSpace(req.FileURL)
	if fileURL != "" && !s.storage.OwnsKey(actor.UserID, docType, fileURL) {
		return nil, fmt.Errorf("%w: file_url must be a key issued for this document", ErrInvalidInput)
	}

	now := s.now()
	var saved *model.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if category == model.CategoryVisa {
			existing, err := s.visaStatuses(txCtx, actor.UserID)
			if err != nil {
				return err
			}
			if decision := workflow.ValidateVisaStep(existing, docType); !decision.Allowed {
				return &VisaOrderError{Reason: decision.Reason}
			}
		}

		current, err := s.findOrCreate(txCtx, actor.UserID, docType, category)
		if err != nil {
			return err
		}
		if current.Status == model.DocumentApproved {
			return ErrAlreadyApproved
		}
		next, err := workflow.NextDocumentStatus(current.Status, workflow.TriggerUpload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}

		saved, err = s.docs.ConditionalUpdate(txCtx,
			repository.DocumentCondition{ID: current.ID, Version: current.Version, Statuses: workflow.DocumentSubmittable()},
			repository.DocumentPatch{
				Status:     next,
				FileName:   &fileName,
				FileURL:    &fileURL,
				UploadedAt: &now,
				HRFeedback: ptr(""),
				UpdatedAt:  now,
			})
		if err != nil {
			return fmt.Errorf("failed to save upload: %w", err)
		}
		if saved == nil {
			return ErrConcurrentModification
		}

		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionUploadDocument,
			EntityID:   saved.ID.String(),
			EntityName: string(saved.Type),
			Details:    auditDetails(map[string]interface{}{"file_name": fileName, "version": saved.Version}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, saved.UserID, model.NotificationDocumentUploaded,
		"Document uploaded",
		fmt.Sprintf("Your %s was uploaded and is waiting for HR review.", humanize(string(saved.Type))),
		map[string]interface{}{"document_id": saved.ID.String(), "type": saved.Type, "status": saved.Status})

	return toDocumentResponse(saved), nil
}

func (s *documentService) findOrCreate(ctx context.Context, userID uuid.UUID, docType model.DocumentType, category model.DocumentCategory) (*model.Document, error) {
	current, err := s.docs.FindOne(ctx, repository.DocumentFilter{UserID: &userID, Type: docType})
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if current != nil {
		return current, nil
	}

	doc := &model.Document{
		UserID:   userID,
		Type:     docType,
		Category: category,
		Status:   model.DocumentNotStarted,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (s *documentService) ReviewDocument(ctx context.Context, reviewer model.Identity, id string, req ReviewDocumentRequest) (*DocumentResponse, error) {
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
	if req.Version == nil {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidInput)
	}
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	observed := *req.Version
	now := s.now()
	var updated *model.Document
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.docs.FindOne(txCtx, repository.DocumentFilter{ID: &docID})
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		if current == nil {
			return fmt.Errorf("%w: document %s", ErrNotFound, id)
		}
		if current.Version != observed {
			return ErrConcurrentModification
		}
		next, err := workflow.NextDocumentStatus(current.Status, trigger)
		if err != nil {
			return ErrConcurrentModification
		}

		entry := model.AuditEntry{
			Action: next,
			By:     model.AuditActor{UserID: reviewer.UserID, Username: reviewer.Username},
			At:     now,
		}
		if req.Feedback != "" {
			entry.Feedback = ptr(req.Feedback)
		}
		hrFeedback := ""
		if next == model.DocumentRejected {
			hrFeedback = req.Feedback
		}

		audit := make(datatypes.JSONSlice[model.AuditEntry], 0, len(current.Audit)+1)
		audit = append(audit, current.Audit...)
		audit = append(audit, entry)

		updated, err = s.docs.ConditionalUpdate(txCtx,
			repository.DocumentCondition{ID: docID, Version: observed, Statuses: []model.DocumentStatus{model.DocumentPending}},
			repository.DocumentPatch{
				Status:     next,
				HRFeedback: &hrFeedback,
				ReviewedAt: &now,
				ReviewedBy: &reviewer.UserID,
				Audit:      audit,
				UpdatedAt:  now,
			})
		if err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}
		if updated == nil {
			return ErrConcurrentModification
		}

		action := model.ActionApproveDocument
		if next == model.DocumentRejected {
			action = model.ActionRejectDocument
		}
		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:     &reviewer.UserID,
			Action:     action,
			EntityID:   updated.ID.String(),
			EntityName: string(updated.Type),
			Details:    auditDetails(map[string]interface{}{"owner_id": updated.UserID.String(), "feedback": req.Feedback, "version": updated.Version}),
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterReview(ctx, updated, reviewer)
	return toDocumentResponse(updated), nil
}

// afterReview runs the best-effort side effects of a committed review.
// Failures are logged and never reach the caller.
func (s *documentService) afterReview(ctx context.Context, doc *model.Document, reviewer model.Identity) {
	title := "Document approved"
	message := fmt.Sprintf("Your %s was approved.", humanize(string(doc.Type)))
	if doc.Status == model.DocumentRejected {
		title = "Document rejected"
		message = fmt.Sprintf("Your %s was rejected. Please review the feedback and upload it again.", humanize(string(doc.Type)))
	}
	s.notify(ctx, doc.UserID, model.NotificationDocumentReviewed, title, message, map[string]interface{}{
		"document_id": doc.ID.String(),
		"type":        doc.Type,
		"status":      doc.Status,
		"feedback":    doc.HRFeedback,
	})

	if doc.Status != model.DocumentRejected {
		return
	}

	ctx = context.WithoutCancel(ctx)
	owner, err := s.users.GetByID(ctx, doc.UserID)
	if err != nil || owner.Email == "" {
		s.log.Warn("Skipping rejection email, owner email unknown",
			zap.String("document_id", doc.ID.String()),
			zap.String("owner_id", doc.UserID.String()),
			zap.Error(err))
		return
	}

	payload := model.DocumentRejectedEmail{
		Recipient:    owner.Email,
		DocumentType: string(doc.Type),
		ReviewerName: reviewer.Username,
		Feedback:     doc.HRFeedback,
	}
	if err := s.emails.Enqueue(ctx, model.EmailDocumentRejected, payload); err != nil {
		s.log.Warn("Failed to enqueue rejection email",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
	}
}

func (s *documentService) notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]interface{}) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), userID, kind, title, message, data); err != nil {
		s.log.Warn("Failed to deliver notification",
			zap.String("user_id", userID.String()),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

func (s *documentService) GetDocument(ctx context.Context, actor model.Identity, id string) (*DocumentResponse, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

func (s *documentService) loadVisible(ctx context.Context, actor model.Identity, id string) (*model.Document, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	doc, err := s.docs.FindOne(ctx, repository.DocumentFilter{ID: &docID})
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	if doc.UserID != actor.UserID && !actor.CanReview() {
		return nil, ErrForbidden
	}
	return doc, nil
}

func (s *documentService) ListMyDocuments(ctx context.Context, actor model.Identity) ([]DocumentResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	docs, _, err := s.docs.FindMany(ctx, repository.DocumentFilter{UserID: &actor.UserID}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return toDocumentResponses(docs), nil
}

func (s *documentService) ListDocuments(ctx context.Context, actor model.Identity, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	if actor.IsZero() {
		return nil, 0, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, 0, ErrForbidden
	}

	f := repository.DocumentFilter{}
	if filter.Status != "" {
		status := model.DocumentStatus(filter.Status)
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
		}
		f.Statuses = []model.DocumentStatus{status}
	}
	if filter.Category != "" {
		category := model.DocumentCategory(filter.Category)
		if !category.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, filter.Category)
		}
		f.Category = category
	}
	if filter.Type != "" {
		docType := model.DocumentType(filter.Type)
		if _, ok := docType.Category(); !ok {
			return nil, 0, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, filter.Type)
		}
		f.Type = docType
	}
	if filter.UserID != "" {
		userID, err := uuid.Parse(filter.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: bad user_id", ErrInvalidInput)
		}
		f.UserID = &userID
	}

	docs, total, err := s.docs.FindMany(ctx, f, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return toDocumentResponses(docs), total, nil
}

func (s *documentService) GetVisaProgress(ctx context.Context, actor model.Identity) (*VisaProgressResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	docs, _, err := s.docs.FindMany(ctx, repository.DocumentFilter{UserID: &actor.UserID, Category: model.CategoryVisa}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load visa documents: %w", err)
	}

	byType := make(map[model.DocumentType]model.Document, len(docs))
	existing := make(map[model.DocumentType]model.DocumentStatus, len(docs))
	for _, d := range docs {
		byType[d.Type] = d
		existing[d.Type] = d.Status
	}

	res := &VisaProgressResponse{Steps: make([]VisaStepResponse, 0, len(workflow.VisaSteps))}
	for _, step := range workflow.VisaSteps {
		item := VisaStepResponse{Type: string(step), Status: string(model.DocumentNotStarted)}
		if d, ok := byType[step]; ok {
			item.Status = string(d.Status)
			item.DocumentID = ptr(d.ID.String())
			item.HRFeedback = d.HRFeedback
		}
		res.Steps = append(res.Steps, item)
	}

	current, ok := workflow.CurrentVisaStep(existing)
	if !ok {
		res.Completed = true
		res.Reason = workflow.ReasonFlowLocked
		return res, nil
	}
	res.CurrentStep = ptr(string(current))
	decision := workflow.ValidateVisaStep(existing, current)
	res.CanUpload = decision.Allowed
	res.Reason = decision.Reason
	return res, nil
}

func (s *documentService) CreateUploadURL(ctx context.Context, actor model.Identity, req UploadURLRequest) (*PresignedURLResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	docType := model.DocumentType(req.Type)
	category, ok := docType.Category()
	if !ok {
		return nil, ErrInvalidDocumentType
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file_name is required", ErrInvalidInput)
	}

	// fail early so the client does not upload a file it cannot attach
	if category == model.CategoryVisa {
		existing, err := s.visaStatuses(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if decision := workflow.ValidateVisaStep(existing, docType); !decision.Allowed {
			return nil, &VisaOrderError{Reason: decision.Reason}
		}
	}

	key := s.storage.ObjectKey(actor.UserID, docType, fileName)
	url, err := s.storage.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &PresignedURLResponse{URL: url, FileURL: key, ExpiresIn: int(s.storage.Expiry().Seconds())}, nil
}

func (s *documentService) CreateDownloadURL(ctx context.Context, actor model.Identity, id string) (*PresignedURLResponse, error) {
	doc, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.FileURL == "" {
		return nil, fmt.Errorf("%w: document has no stored file", ErrInvalidState)
	}
	if !s.storage.OwnsKey(doc.UserID, doc.Type, doc.FileURL) {
		s.log.Warn("Refusing to presign foreign object key",
			zap.String("document_id", doc.ID.String()),
			zap.String("file_url", doc.FileURL))
		return nil, fmt.Errorf("%w: document has no stored file", ErrInvalidState)
	}
	url, err := s.storage.PresignDownload(ctx, doc.FileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}
	return &PresignedURLResponse{URL: url, ExpiresIn: int(s.storage.Expiry().Seconds())}, nil
}

func (s *documentService) visaStatuses(ctx context.Context, userID uuid.UUID) (map[model.DocumentType]model.DocumentStatus, error) {
	docs, _, err := s.docs.FindMany(ctx, repository.DocumentFilter{UserID: &userID, Category: model.CategoryVisa}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load visa documents: %w", err)
	}
	existing := make(map[model.DocumentType]model.DocumentStatus, len(docs))
	for _, d := range docs {
		existing[d.Type] = d.Status
	}
	return existing, nil
}

func parseTypeAndCategory(rawType, rawCategory string) (model.DocumentType, model.DocumentCategory, error) {
	docType := model.DocumentType(rawType)
	category := model.DocumentCategory(rawCategory)
	actual, ok := docType.Category()
	if !ok || actual != category {
		return "", "", ErrInvalidDocumentType
	}
	return docType, category, nil
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func toDocumentResponse(d *model.Document) *DocumentResponse {
	res := &DocumentResponse{
		ID:         d.ID.String(),
		UserID:     d.UserID.String(),
		Type:       string(d.Type),
		Category:   string(d.Category),
		Status:     string(d.Status),
		FileName:   d.FileName,
		FileURL:    d.FileURL,
		UploadedAt: formatTime(d.UploadedAt),
		HRFeedback: d.HRFeedback,
		ReviewedAt: formatTime(d.ReviewedAt),
		Audit:      make([]AuditEntryResponse, 0, len(d.Audit)),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.Format(time.RFC3339),
	}
	if d.ReviewedBy != nil {
		res.ReviewedBy = ptr(d.ReviewedBy.String())
	}
	for _, e := range d.Audit {
		res.Audit = append(res.Audit, AuditEntryResponse{
			Action:     string(e.Action),
			ByUserID:   e.By.UserID.String(),
			ByUsername: e.By.Username,
			At:         e.At.Format(time.RFC3339),
			Feedback:   e.Feedback,
		})
	}
	return res
}

func toDocumentResponses(docs []model.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *toDocumentResponse(&docs[i]))
	}
	return out
}
