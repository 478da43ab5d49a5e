// Package scheduler runs periodic rescans and trash purges on cron expressions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eargollo/dupefinder/internal/scan"
)

// Starter launches scans. *scan.Manager satisfies it.
type Starter interface {
	Start(parent context.Context, req scan.Request, triggeredBy string) (*scan.ActiveScan, error)
}

// Scheduler wraps robfig/cron and tracks the rescan job and its next run.
type Scheduler struct {
	mu       sync.RWMutex
	c        *cron.Cron
	ctx      context.Context
	entryID  cron.EntryID
	cronExpr string
	skipped  atomic.Int64
}

// New creates a stopped Scheduler. Call Start to activate it.
func New() *Scheduler {
	l := slogLogger{}
	return &Scheduler{
		c:   cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		ctx: context.Background(),
	}
}

// SetRescan replaces the rescan job. Each tick starts a scan built by req
// through mgr and waits for it; onFinish, if non-nil, receives the outcome.
// A tick that finds a scan already running is skipped.
func (s *Scheduler) SetRescan(expr string, mgr Starter, req func() scan.Request, onFinish func(*scan.Report, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.c.Remove(s.entryID)
		s.entryID, s.cronExpr = 0, ""
	}

	id, err := s.c.AddFunc(expr, s.rescanJob(mgr, req, onFinish))
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.entryID = id
	s.cronExpr = expr
	slog.Info("scheduler: rescan set", "cron", expr)
	return nil
}

// AddJob adds a named background job, such as the trash purge.
// Unlike SetRescan, this does not replace the tracked job.
func (s *Scheduler) AddJob(name, expr string, fn func(context.Context) error) error {
	_, err := s.c.AddFunc(expr, func() {
		slog.Info("scheduler: job triggered", "job", name)
		if err := fn(s.context()); err != nil {
			slog.Error("scheduler: job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	slog.Info("scheduler: background job added", "job", name, "cron", expr)
	return nil
}

// Start begins the cron loop. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.c.Start()
}

// Stop halts the cron loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// NextRunAt returns the next rescan time, or nil if no rescan is set.
func (s *Scheduler) NextRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entryID == 0 {
		return nil
	}
	entry := s.c.Entry(s.entryID)
	if entry.ID == 0 || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

// CronExpr returns the rescan cron expression.
func (s *Scheduler) CronExpr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cronExpr
}

// Skipped returns how many rescan ticks found a scan already running.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

func (s *Scheduler) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Scheduler) rescanJob(mgr Starter, req func() scan.Request, onFinish func(*scan.Report, error)) func() {
	return func() {
		active, err := mgr.Start(s.context(), req(), "schedule")
		if errors.Is(err, scan.ErrAlreadyRunning) {
			s.skipped.Add(1)
			slog.Info("scheduled scan skipped, scan in progress")
			return
		}
		if err != nil {
			slog.Warn("scheduled scan start", "error", err)
			return
		}
		slog.Info("scheduled scan started", "scan_id", active.ID.String())
		rep, err := active.Result()
		if onFinish != nil {
			onFinish(rep, err)
		}
	}
}

// slogLogger routes cron's own logging through slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
