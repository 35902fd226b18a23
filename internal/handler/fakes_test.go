package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrportal/internal/auth"
	"hrportal/internal/middleware"
	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testTokens = auth.NewTokens([]byte("handler-secret"), time.Hour)

func testAuth() *middleware.Auth {
	return middleware.NewAuth(testTokens, 24*time.Hour, false)
}

func bearer(t *testing.T, role string) (model.Identity, string) {
	t.Helper()
	id := model.Identity{UserID: uuid.New(), Username: role + "-user", Role: role}
	token, err := testTokens.Issue(id, time.Now())
	require.NoError(t, err)
	return id, "Bearer " + token
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func newRouter(register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r.Group(""))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, authz string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// --- documents ---

type fakeDocumentService struct {
	lastActor  model.Identity
	lastID     string
	lastUpload service.UploadDocumentRequest
	lastReview service.ReviewDocumentRequest
	lastFilter service.DocumentListFilter
	err        error
}

func (f *fakeDocumentService) UploadDocument(_ context.Context, actor model.Identity, req service.UploadDocumentRequest) (*service.DocumentResponse, error) {
	f.lastActor, f.lastUpload = actor, req
	if f.err != nil {
		return nil, f.err
	}
	return &service.DocumentResponse{ID: "doc-1", Type: req.Type, Category: req.Category, Status: string(model.DocumentPending), Version: 1}, nil
}

func (f *fakeDocumentService) ReviewDocument(_ context.Context, reviewer model.Identity, id string, req service.ReviewDocumentRequest) (*service.DocumentResponse, error) {
	f.lastActor, f.lastID, f.lastReview = reviewer, id, req
	if f.err != nil {
		return nil, f.err
	}
	return &service.DocumentResponse{ID: id, Status: req.Decision, Version: *req.Version + 1}, nil
}

func (f *fakeDocumentService) GetDocument(_ context.Context, actor model.Identity, id string) (*service.DocumentResponse, error) {
	f.lastActor, f.lastID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return &service.DocumentResponse{ID: id}, nil
}

func (f *fakeDocumentService) ListMyDocuments(_ context.Context, actor model.Identity) ([]service.DocumentResponse, error) {
	f.lastActor = actor
	return []service.DocumentResponse{}, f.err
}

func (f *fakeDocumentService) ListDocuments(_ context.Context, actor model.Identity, filter service.DocumentListFilter) ([]service.DocumentResponse, int64, error) {
	f.lastActor, f.lastFilter = actor, filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return []service.DocumentResponse{{ID: "doc-1"}}, 1, nil
}

func (f *fakeDocumentService) GetVisaProgress(_ context.Context, actor model.Identity) (*service.VisaProgressResponse, error) {
	f.lastActor = actor
	return &service.VisaProgressResponse{CanUpload: true}, f.err
}

func (f *fakeDocumentService) CreateUploadURL(_ context.Context, actor model.Identity, _ service.UploadURLRequest) (*service.PresignedURLResponse, error) {
	f.lastActor = actor
	return &service.PresignedURLResponse{URL: "https://upload", ExpiresIn: 900}, f.err
}

func (f *fakeDocumentService) CreateDownloadURL(_ context.Context, actor model.Identity, id string) (*service.PresignedURLResponse, error) {
	f.lastActor, f.lastID = actor, id
	return &service.PresignedURLResponse{URL: "https://download", ExpiresIn: 900}, f.err
}

// --- onboarding ---

type fakeOnboardingService struct {
	submitted  json.RawMessage
	lastReview service.ReviewOnboardingRequest
	lastFilter service.OnboardingListFilter
	calls      int
	err        error
}

func (f *fakeOnboardingService) SubmitOnboarding(_ context.Context, actor model.Identity, formData json.RawMessage) (*service.OnboardingResponse, error) {
	f.calls++
	f.submitted = formData
	if f.err != nil {
		return nil, f.err
	}
	id := "app-1"
	return &service.OnboardingResponse{ID: &id, UserID: actor.UserID.String(), Status: string(model.OnboardingPending), FormData: formData, Version: 1}, nil
}

func (f *fakeOnboardingService) ReviewOnboarding(_ context.Context, _ model.Identity, id string, req service.ReviewOnboardingRequest) (*service.OnboardingResponse, error) {
	f.calls++
	f.lastReview = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.OnboardingResponse{ID: &id, Status: req.Decision}, nil
}

func (f *fakeOnboardingService) GetMyOnboarding(_ context.Context, actor model.Identity) (*service.OnboardingResponse, error) {
	return &service.OnboardingResponse{UserID: actor.UserID.String(), Status: string(model.OnboardingNeverSubmitted)}, f.err
}

func (f *fakeOnboardingService) GetOnboarding(_ context.Context, _ model.Identity, id string) (*service.OnboardingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.OnboardingResponse{ID: &id}, nil
}

func (f *fakeOnboardingService) ListOnboarding(_ context.Context, _ model.Identity, filter service.OnboardingListFilter) ([]service.OnboardingResponse, int64, error) {
	f.lastFilter = filter
	return []service.OnboardingResponse{}, 0, f.err
}

// --- notifications ---

type fakeNotificationService struct {
	unreadOnly bool
	readID     string
	err        error
}

func (f *fakeNotificationService) Notify(context.Context, uuid.UUID, string, string, string, map[string]interface{}) error {
	return nil
}

func (f *fakeNotificationService) ListNotifications(_ context.Context, _ model.Identity, unreadOnly bool, _, _ int) ([]service.NotificationResponse, int64, error) {
	f.unreadOnly = unreadOnly
	return []service.NotificationResponse{{ID: "n-1", Kind: model.NotificationDocumentReviewed}}, 1, f.err
}

func (f *fakeNotificationService) MarkRead(_ context.Context, _ model.Identity, id string) error {
	f.readID = id
	return f.err
}

func (f *fakeNotificationService) MarkAllRead(context.Context, model.Identity) (int64, error) {
	return 3, f.err
}

// --- users ---

type fakeUserService struct {
	loggedOut  string
	refreshed  string
	lastRole   string
	loginErr   error
	refreshErr error
	createErr  error
}

func (f *fakeUserService) CreateUser(_ context.Context, _ model.Identity, req service.CreateUserRequest) (*service.UserResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &service.UserResponse{ID: uuid.New(), Username: req.Username, Email: req.Email, Role: req.Role}, nil
}

func (f *fakeUserService) EnsureHR(context.Context, string, string) error { return nil }

func (f *fakeUserService) Login(_ context.Context, req service.LoginUserRequest) (*service.TokenResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.TokenResponse{Token: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600, User: service.UserResponse{Email: req.Email}}, nil
}

func (f *fakeUserService) Refresh(_ context.Context, req service.RefreshTokenRequest) (*service.TokenResponse, error) {
	f.refreshed = req.RefreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &service.TokenResponse{Token: "access-2", RefreshToken: "refresh-2", ExpiresIn: 3600}, nil
}

func (f *fakeUserService) Logout(_ context.Context, refreshToken string) error {
	f.loggedOut = refreshToken
	return nil
}

func (f *fakeUserService) GetUserByID(_ context.Context, id string) (*service.UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, service.ErrNotFound
	}
	return &service.UserResponse{ID: uid, Username: "me"}, nil
}

func (f *fakeUserService) ListUsers(_ context.Context, _ model.Identity, role string, _, _ int) ([]service.UserResponse, int64, error) {
	f.lastRole = role
	return []service.UserResponse{}, 0, nil
}

// --- audit ---

type fakeAuditService struct {
	filter repository.AuditFilter
	page   int
	limit  int
}

func (f *fakeAuditService) GetAuditLogs(_ context.Context, _ model.Identity, filter repository.AuditFilter, page, limit int) ([]service.AuditLogResponse, int64, error) {
	f.filter, f.page, f.limit = filter, page, limit
	return []service.AuditLogResponse{}, 0, nil
}

// --- statistics ---

type fakeStatisticsService struct {
	start time.Time
	end   time.Time
}

func (f *fakeStatisticsService) GetStatistics(_ context.Context, _ model.Identity, startDate, endDate time.Time) (model.ReviewStatistics, error) {
	f.start, f.end = startDate, endDate
	return model.ReviewStatistics{Employees: 4, TimeRangeStartDate: startDate, TimeRangeEndDate: endDate}, nil
}
