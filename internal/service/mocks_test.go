package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func containsStatus[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// memDocuments is a DocumentRepository whose conditional update is atomic under a mutex
type memDocuments struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Document

	findErr error
}

func newMemDocuments(docs ...model.Document) *memDocuments {
	m := &memDocuments{rows: make(map[uuid.UUID]model.Document)}
	for _, d := range docs {
		m.rows[d.ID] = d
	}
	return m
}

func (m *memDocuments) matches(d model.Document, f repository.DocumentFilter) bool {
	if f.ID != nil && d.ID != *f.ID {
		return false
	}
	if f.UserID != nil && d.UserID != *f.UserID {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	return containsStatus(f.Statuses, d.Status)
}

func (m *memDocuments) FindOne(ctx context.Context, f repository.DocumentFilter) (*model.Document, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if m.matches(d, f) {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDocuments) FindMany(ctx context.Context, f repository.DocumentFilter, page, limit int) ([]model.Document, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.rows {
		if m.matches(d, f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, int64(len(out)), nil
}

func (m *memDocuments) Create(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if d.UserID == doc.UserID && d.Type == doc.Type {
			return repository.ErrDuplicate
		}
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Audit == nil {
		doc.Audit = []model.AuditEntry{}
	}
	m.rows[doc.ID] = *doc
	return nil
}

func (m *memDocuments) ConditionalUpdate(ctx context.Context, cond repository.DocumentCondition, p repository.DocumentPatch) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[cond.ID]
	if !ok || d.Version != cond.Version || !containsStatus(cond.Statuses, d.Status) {
		return nil, nil
	}
	if p.Status != "" {
		d.Status = p.Status
	}
	if p.FileName != nil {
		d.FileName = *p.FileName
	}
	if p.FileURL != nil {
		d.FileURL = *p.FileURL
	}
	if p.UploadedAt != nil {
		d.UploadedAt = p.UploadedAt
	}
	if p.HRFeedback != nil {
		d.HRFeedback = *p.HRFeedback
	}
	if p.ReviewedAt != nil {
		d.ReviewedAt = p.ReviewedAt
	}
	if p.ReviewedBy != nil {
		d.ReviewedBy = p.ReviewedBy
	}
	if p.Audit != nil {
		d.Audit = p.Audit
	}
	if !p.UpdatedAt.IsZero() {
		d.UpdatedAt = p.UpdatedAt
	}
	d.Version++
	m.rows[d.ID] = d
	return &d, nil
}

func (m *memDocuments) get(id uuid.UUID) model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memApplications struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.OnboardingApplication
}

func newMemApplications(apps ...model.OnboardingApplication) *memApplications {
	m := &memApplications{rows: make(map[uuid.UUID]model.OnboardingApplication)}
	for _, a := range apps {
		m.rows[a.ID] = a
	}
	return m
}

func (m *memApplications) matches(a model.OnboardingApplication, f repository.OnboardingFilter) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	return containsStatus(f.Statuses, a.Status)
}

func (m *memApplications) FindOne(ctx context.Context, f repository.OnboardingFilter) (*model.OnboardingApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if m.matches(a, f) {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memApplications) FindMany(ctx context.Context, f repository.OnboardingFilter, page, limit int) ([]model.OnboardingApplication, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OnboardingApplication
	for _, a := range m.rows {
		if m.matches(a, f) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memApplications) Create(ctx context.Context, app *model.OnboardingApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.UserID == app.UserID {
			return repository.ErrDuplicate
		}
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	m.rows[app.ID] = *app
	return nil
}

func (m *memApplications) ConditionalUpdate(ctx context.Context, cond repository.OnboardingCondition, p repository.OnboardingPatch) (*model.OnboardingApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[cond.ID]
	if !ok || a.Version != cond.Version || !containsStatus(cond.Statuses, a.Status) {
		return nil, nil
	}
	if p.Status != "" {
		a.Status = p.Status
	}
	if p.FormData != nil {
		a.FormData = p.FormData
	}
	if p.HRFeedback != nil {
		a.HRFeedback = *p.HRFeedback
	}
	if p.SubmittedAt != nil {
		a.SubmittedAt = p.SubmittedAt
	}
	if p.ReviewedAt != nil {
		a.ReviewedAt = p.ReviewedAt
	}
	if p.ReviewedBy != nil {
		a.ReviewedBy = p.ReviewedBy
	}
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
	a.Version++
	m.rows[a.ID] = a
	return &a, nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
	saved []model.RefreshToken

	getByIDFunc func(ctx context.Context, id uuid.UUID) (*model.User, error)
}

func newMockUserRepo(users ...model.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context, role string, page, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockUserRepo) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *token)
	return nil
}

func (m *mockUserRepo) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rt := range m.saved {
		if rt.Token == token {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			if now.After(rt.ExpiresAt) {
				return nil, repository.ErrNotFound
			}
			return &rt, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rt := range m.saved {
		if rt.Token == token {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			break
		}
	}
	return nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	logErr  error
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, int64(len(m.entries)), nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type sentNotification struct {
	UserID uuid.UUID
	Kind   string
	Title  string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Kind: kind, Title: title})
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type queuedEmail struct {
	Kind    string
	Payload interface{}
}

type mockEmailQueue struct {
	mu     sync.Mutex
	queued []queuedEmail
	err    error
}

func (m *mockEmailQueue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, queuedEmail{Kind: kind, Payload: payload})
	return nil
}

func (m *mockEmailQueue) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued)
}

type mockStorage struct {
	presignErr error
	lastKey    string
}

func (m *mockStorage) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	m.lastKey = key
	return "https://bucket.example/" + key + "?put", nil
}

func (m *mockStorage) PresignDownload(ctx context.Context, key string) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	m.lastKey = key
	return "https://bucket.example/" + key + "?get", nil
}

func (m *mockStorage) ObjectKey(userID uuid.UUID, docType model.DocumentType, fileName string) string {
	return "documents/" + userID.String() + "/" + string(docType) + "/" + fileName
}

func (m *mockStorage) OwnsKey(userID uuid.UUID, docType model.DocumentType, key string) bool {
	return storage.OwnsKey(userID, docType, key)
}

func (m *mockStorage) Expiry() time.Duration {
	return 15 * time.Minute
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type documentFixture struct {
	svc      *documentService
	docs     *memDocuments
	users    *mockUserRepo
	audits   *mockAuditRepo
	notifier *mockNotifier
	emails   *mockEmailQueue
	storage  *mockStorage
}

func newDocumentFixture(users []model.User, docs ...model.Document) *documentFixture {
	f := &documentFixture{
		docs:     newMemDocuments(docs...),
		users:    newMockUserRepo(users...),
		audits:   &mockAuditRepo{},
		notifier: &mockNotifier{},
		emails:   &mockEmailQueue{},
		storage:  &mockStorage{},
	}
	svc := NewDocumentService(&mockTxManager{}, f.docs, f.users, f.audits, f.notifier, f.emails, f.storage, zap.NewNop()).(*documentService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

type onboardingFixture struct {
	svc      *onboardingService
	apps     *memApplications
	users    *mockUserRepo
	audits   *mockAuditRepo
	notifier *mockNotifier
	emails   *mockEmailQueue
}

func newOnboardingFixture(users []model.User, apps ...model.OnboardingApplication) *onboardingFixture {
	f := &onboardingFixture{
		apps:     newMemApplications(apps...),
		users:    newMockUserRepo(users...),
		audits:   &mockAuditRepo{},
		notifier: &mockNotifier{},
		emails:   &mockEmailQueue{},
	}
	svc := NewOnboardingService(&mockTxManager{}, f.apps, f.users, f.audits, f.notifier, f.emails, zap.NewNop()).(*onboardingService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func employee(name string) (model.User, model.Identity) {
	u := model.User{ID: uuid.New(), Username: name, Email: name + "@example.com", Role: model.RoleEmployee}
	return u, model.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func reviewer(name string) (model.User, model.Identity) {
	u := model.User{ID: uuid.New(), Username: name, Email: name + "@example.com", Role: model.RoleHR}
	return u, model.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
