package mailer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hrportal/internal/config"
	"hrportal/internal/database"
	"hrportal/internal/model"
	"hrportal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "mail.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type mockSender struct {
	mu    sync.Mutex
	sent  []Message
	calls int
	err   error
}

func (m *mockSender) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{MaxAttempts: 3, Backoff: time.Minute, PollInterval: 10 * time.Millisecond, BatchSize: 10}
}

func newHarness(t *testing.T, sender Sender) (*Queue, *Worker, *clock, *gorm.DB) {
	db := setupTestDB(t)
	repo := repository.NewEmailJobRepository(db)
	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}

	q := NewQueue(repo, testEmailConfig().MaxAttempts)
	q.now = clk.Now
	w := NewWorker(repo, sender, testEmailConfig(), zap.NewNop())
	w.now = clk.Now
	return q, w, clk, db
}

func loadJobs(t *testing.T, db *gorm.DB) []model.EmailJob {
	var jobs []model.EmailJob
	require.NoError(t, db.Order("created_at").Find(&jobs).Error)
	return jobs
}

func TestWorker_DeliversQueuedEmail(t *testing.T) {
	sender := &mockSender{}
	q, w, _, db := newHarness(t, sender)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.EmailDocumentRejected, model.DocumentRejectedEmail{
		Recipient: "ana@example.com", DocumentType: "opt_ead", ReviewerName: "jane", Feedback: "expired card",
	}))

	assert.Equal(t, 1, w.ProcessDue(ctx))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "opt ead")
	assert.Contains(t, sender.sent[0].Body, "expired card")

	jobs := loadJobs(t, db)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.EmailJobSent, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.NotNil(t, jobs[0].SentAt)

	assert.Equal(t, 0, w.ProcessDue(ctx))
	assert.Equal(t, 1, sender.callCount())
}

func TestWorker_RetriesThenFails(t *testing.T) {
	sender := &mockSender{err: errors.New("connection refused")}
	q, w, clk, db := newHarness(t, sender)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.EmailOnboardingRejected, model.OnboardingRejectedEmail{
		Recipient: "ana@example.com", ReviewerName: "jane", Feedback: "missing address",
	}))

	w.ProcessDue(ctx)
	assert.Equal(t, 1, sender.callCount())
	jobs := loadJobs(t, db)
	assert.Equal(t, model.EmailJobPending, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, "connection refused", jobs[0].LastError)

	w.ProcessDue(ctx)
	assert.Equal(t, 1, sender.callCount(), "not due before the backoff elapses")

	clk.Advance(time.Minute)
	w.ProcessDue(ctx)
	clk.Advance(time.Minute)
	w.ProcessDue(ctx)
	assert.Equal(t, 3, sender.callCount())

	jobs = loadJobs(t, db)
	assert.Equal(t, model.EmailJobFailed, jobs[0].Status)
	assert.Equal(t, 3, jobs[0].Attempts)

	clk.Advance(time.Hour)
	w.ProcessDue(ctx)
	assert.Equal(t, 3, sender.callCount())
}

func TestWorker_RedeliversJobAbandonedMidSend(t *testing.T) {
	sender := &mockSender{}
	q, w, clk, db := newHarness(t, sender)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.EmailDocumentRejected, model.DocumentRejectedEmail{
		Recipient: "ana@example.com", DocumentType: "i_983", ReviewerName: "jane",
	}))
	job := loadJobs(t, db)[0]

	// a previous process claimed the job and exited before recording the outcome
	claimed, err := repository.NewEmailJobRepository(db).Claim(ctx, job.ID, 0, clk.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	assert.Equal(t, 0, w.ProcessDue(ctx))
	assert.Equal(t, model.EmailJobSending, loadJobs(t, db)[0].Status, "still inside the lease")

	clk.Advance(w.claimLease + time.Second)
	assert.Equal(t, 1, w.ProcessDue(ctx))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)

	jobs := loadJobs(t, db)
	assert.Equal(t, model.EmailJobSent, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempts)
}

func TestWorker_UnknownKindFailsWithoutSending(t *testing.T) {
	sender := &mockSender{}
	_, w, clk, db := newHarness(t, sender)

	require.NoError(t, db.Create(&model.EmailJob{
		Kind:          "newsletter",
		Payload:       datatypes.JSON(`{}`),
		Status:        model.EmailJobPending,
		MaxAttempts:   3,
		NextAttemptAt: clk.Now(),
	}).Error)

	w.ProcessDue(context.Background())
	assert.Equal(t, 0, sender.callCount())
	assert.Equal(t, model.EmailJobFailed, loadJobs(t, db)[0].Status)
}

func TestWorker_StartStop(t *testing.T) {
	sender := &mockSender{}
	q, w, _, _ := newHarness(t, sender)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, model.EmailOnboardingRejected, model.OnboardingRejectedEmail{Recipient: "ana@example.com"}))
	require.Eventually(t, func() bool { return sender.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
	assert.Equal(t, "EmailWorker", w.Name())
}

func TestRender(t *testing.T) {
	msg, err := Render(model.EmailJob{
		Kind:    model.EmailOnboardingRejected,
		Payload: datatypes.JSON(`{"recipient":"ana@example.com","reviewerName":"jane","feedback":""}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Your onboarding application needs changes", msg.Subject)
	assert.Contains(t, msg.Body, "reviewed by jane")
	assert.NotContains(t, msg.Body, "Feedback from HR")

	_, err = Render(model.EmailJob{Kind: model.EmailDocumentRejected, Payload: datatypes.JSON(`{"documentType":"i_20"}`)})
	assert.Error(t, err, "recipient is required")

	_, err = Render(model.EmailJob{Kind: model.EmailDocumentRejected, Payload: datatypes.JSON(`[`)})
	assert.Error(t, err)
}
