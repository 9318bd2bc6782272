// Package scheduler drives the daily auto-publish job.
// Uses robfig/cron for schedule parsing and execution; the single job is
// re-armed from the persisted HH:MM setting on startup and whenever the
// admin changes the publish time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PublishFunc is called when the daily job fires.
type PublishFunc func(ctx context.Context) error

// hhmmRe validates a 24h HH:MM time string.
var hhmmRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// jobTimeout bounds a single publish run, generation included.
const jobTimeout = 5 * time.Minute

// Scheduler manages the daily publish cron entry.
type Scheduler struct {
	cron    *cron.Cron
	publish PublishFunc
	logger  *slog.Logger

	// entryID is the active cron entry, zero when the job is disabled.
	entryID cron.EntryID
	armed   bool

	// running guards against a fire overlapping a still-active run.
	running bool

	// timeStr is the currently armed HH:MM, empty when disabled.
	timeStr string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler firing in the given location.
func New(loc *time.Location, publish PublishFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		publish: publish,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start launches the cron loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop shuts the scheduler down, waiting briefly for a running job.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("scheduler stop timed out")
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// Reschedule replaces the daily job with one firing at hhmm every day.
// An empty hhmm disables the job. Replacement is idempotent: any existing
// entry is removed first, so at most one entry is ever armed.
func (s *Scheduler) Reschedule(hhmm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m []string
	if hhmm != "" {
		m = hhmmRe.FindStringSubmatch(hhmm)
		if m == nil {
			return fmt.Errorf("invalid time %q, expected HH:MM", hhmm)
		}
	}

	if s.armed {
		s.cron.Remove(s.entryID)
		s.entryID = 0
		s.armed = false
		s.timeStr = ""
	}

	if hhmm == "" {
		s.logger.Info("daily publish disabled")
		return nil
	}

	spec := fmt.Sprintf("%s %s * * *", m[2], m[1])
	entryID, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("scheduling daily publish: %w", err)
	}

	s.entryID = entryID
	s.armed = true
	s.timeStr = hhmm

	s.logger.Info("daily publish scheduled", "time", hhmm)
	return nil
}

// Armed reports whether the daily job is active.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Time returns the armed HH:MM, empty when disabled.
func (s *Scheduler) Time() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeStr
}

// NextRun returns the next fire time, zero when disabled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	entryID := s.entryID
	armed := s.armed
	s.mu.Unlock()

	if !armed {
		return time.Time{}
	}
	return s.cron.Entry(entryID).Next
}

// run executes a single publish with overlap guard and panic recovery.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("skipping publish, previous run still active")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		if r := recover(); r != nil {
			s.logger.Error("daily publish panicked", "panic", r)
		}
	}()

	base := s.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := s.publish(ctx); err != nil {
		s.logger.Error("daily publish failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("daily publish completed", "duration", time.Since(start))
}
