package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hrportal/internal/config"
	"hrportal/internal/model"
	"hrportal/internal/repository"

	"go.uber.org/zap"
)

// Worker polls due email jobs and delivers them. A failed attempt is retried
// after a fixed backoff until the job's MaxAttempts is reached. Jobs left in
// sending longer than the claim lease are taken back, so delivery is at least once.
type Worker struct {
	repo   repository.EmailJobRepository
	sender Sender
	logger *zap.Logger

	pollInterval time.Duration
	backoff      time.Duration
	batchSize    int
	claimLease   time.Duration
	now          func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewWorker(repo repository.EmailJobRepository, sender Sender, cfg config.EmailConfig, logger *zap.Logger) *Worker {
	w := &Worker{
		repo:         repo,
		sender:       sender,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		backoff:      cfg.Backoff,
		batchSize:    cfg.BatchSize,
		claimLease:   cfg.ClaimLease,
		now:          time.Now,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 5 * time.Second
	}
	if w.batchSize <= 0 {
		w.batchSize = 20
	}
	if w.claimLease <= 0 {
		w.claimLease = w.pollInterval + w.backoff
	}
	return w
}

// Start launches the polling loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("email worker is already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("EmailWorker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("backoff", w.backoff),
		zap.Int("batch_size", w.batchSize),
		zap.Duration("claim_lease", w.claimLease))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("EmailWorker stopped")
}

func (w *Worker) Name() string {
	return "EmailWorker"
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessDue(ctx)
		}
	}
}

// ProcessDue delivers one batch of due jobs and returns how many were sent
func (w *Worker) ProcessDue(ctx context.Context) int {
	now := w.now()
	if n, err := w.repo.Reclaim(ctx, now.Add(-w.claimLease), now); err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Failed to reclaim stale email jobs", zap.Error(err))
		}
	} else if n > 0 {
		w.logger.Warn("Reclaimed stale email jobs", zap.Int64("count", n))
	}

	jobs, err := w.repo.FindDue(ctx, now, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Failed to load due email jobs", zap.Error(err))
		}
		return 0
	}

	sent := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, job) {
			sent++
		}
	}
	return sent
}

func (w *Worker) deliver(ctx context.Context, job model.EmailJob) bool {
	claimed, err := w.repo.Claim(ctx, job.ID, job.Attempts, w.now())
	if err != nil {
		w.logger.Error("Failed to claim email job", zap.String("job_id", job.ID.String()), zap.Error(err))
		return false
	}
	if !claimed {
		return false
	}

	attempts := job.Attempts + 1
	msg, err := Render(job)
	if err != nil {
		// no point retrying a payload that cannot render
		w.logger.Error("Dropping undeliverable email job",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", job.Kind),
			zap.Error(err))
		w.markFailed(ctx, job, attempts, err)
		return false
	}

	if err := w.sender.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		if attempts >= job.MaxAttempts {
			w.logger.Error("Email delivery failed permanently",
				zap.String("job_id", job.ID.String()),
				zap.String("kind", job.Kind),
				zap.Int("attempts", attempts),
				zap.Error(err))
			w.markFailed(ctx, job, attempts, err)
			return false
		}
		next := w.now().Add(w.backoff)
		w.logger.Warn("Email delivery failed, will retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempts", attempts),
			zap.Time("next_attempt_at", next),
			zap.Error(err))
		if err := w.repo.MarkRetry(context.WithoutCancel(ctx), job.ID, attempts, next, err.Error()); err != nil {
			w.logger.Error("Failed to reschedule email job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
		return false
	}

	if err := w.repo.MarkSent(context.WithoutCancel(ctx), job.ID, w.now()); err != nil {
		w.logger.Error("Failed to mark email job sent", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	w.logger.Info("Email sent",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", job.Kind),
		zap.Int("attempts", attempts))
	return true
}

func (w *Worker) markFailed(ctx context.Context, job model.EmailJob, attempts int, cause error) {
	if err := w.repo.MarkFailed(context.WithoutCancel(ctx), job.ID, attempts, cause.Error()); err != nil {
		w.logger.Error("Failed to mark email job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
