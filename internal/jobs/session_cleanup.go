package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type expiredSessionDeleter interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionCleanupJob periodically deletes dialog sessions that expired more
// than grace ago. Expired sessions are already ignored by the dialog engine;
// this only reclaims storage.
type SessionCleanupJob struct {
	store    expiredSessionDeleter
	interval time.Duration
	grace    time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionCleanupJob creates a new session cleanup job
func NewSessionCleanupJob(store expiredSessionDeleter, interval, grace time.Duration, log *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		store:    store,
		interval: interval,
		grace:    grace,
		log:      log,
		now:      time.Now,
	}
}

// Start runs the job in the background until Stop or ctx is done.
func (j *SessionCleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.log.Warn("session cleanup job already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.run(ctx, j.done)
	j.log.Info("session cleanup job started", slog.Duration("interval", j.interval))
}

// Stop halts the job and waits for the current sweep to finish.
func (j *SessionCleanupJob) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	j.log.Info("session cleanup job stopped")
}

func (j *SessionCleanupJob) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				j.log.Error("session cleanup failed", slog.Any("error", err))
			}
		}
	}
}

// RunOnce performs a single sweep and returns the number of deleted sessions.
func (j *SessionCleanupJob) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.store.DeleteExpiredSessions(ctx, j.now().Add(-j.grace))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.log.Info("expired dialog sessions deleted", slog.Int64("count", n))
	}
	return n, nil
}
