package scheduler

import (
	"context"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(time.UTC, func(context.Context) error { return nil }, nil)
	return s
}

func TestRescheduleArmsDailyJob(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	if err := s.Reschedule("10:00"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !s.Armed() {
		t.Fatal("job not armed after Reschedule")
	}
	if got := s.Time(); got != "10:00" {
		t.Errorf("Time = %q, want 10:00", got)
	}
}

func TestRescheduleReplacesExistingJob(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Reschedule("10:00"); err != nil {
		t.Fatalf("first Reschedule: %v", err)
	}
	if err := s.Reschedule("14:30"); err != nil {
		t.Fatalf("second Reschedule: %v", err)
	}

	if !s.Armed() {
		t.Fatal("job not armed after replacement")
	}
	if got := s.Time(); got != "14:30" {
		t.Errorf("Time = %q, want 14:30", got)
	}
	if entries := len(s.cron.Entries()); entries != 1 {
		t.Errorf("cron has %d entries, want exactly 1", entries)
	}

	next := s.NextRun()
	if next.IsZero() {
		t.Fatal("NextRun is zero for an armed job")
	}
	if next.Hour() != 14 || next.Minute() != 30 {
		t.Errorf("NextRun = %s, want 14:30", next.Format("15:04"))
	}
}

func TestRescheduleEmptyDisables(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	if err := s.Reschedule("09:15"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if err := s.Reschedule(""); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if s.Armed() {
		t.Fatal("job still armed after disable")
	}
	if entries := len(s.cron.Entries()); entries != 0 {
		t.Errorf("cron has %d entries, want 0", entries)
	}

	// Disabling when nothing is armed succeeds quietly.
	if err := s.Reschedule(""); err != nil {
		t.Fatalf("second disable: %v", err)
	}
	if s.Armed() || len(s.cron.Entries()) != 0 {
		t.Error("double disable left a job armed")
	}
}

func TestRescheduleRejectsBadTime(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	for _, bad := range []string{"25:00", "10:75", "7:5", "noon", "10.30", "10:30:00"} {
		if err := s.Reschedule(bad); err == nil {
			t.Errorf("Reschedule(%q) accepted, want error", bad)
		}
		if s.Armed() {
			t.Errorf("Reschedule(%q) left a job armed", bad)
		}
	}

	// A rejected time must not disarm an already armed job.
	if err := s.Reschedule("08:00"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if err := s.Reschedule("99:99"); err == nil {
		t.Fatal("Reschedule(99:99) accepted, want error")
	}
	if !s.Armed() || s.Time() != "08:00" {
		t.Errorf("invalid time disarmed the job: armed=%v time=%q", s.Armed(), s.Time())
	}
}

func TestRunSkipsOverlap(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 2)

	s := New(time.UTC, func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}, nil)
	s.Start(context.Background())
	defer s.Stop()

	go func() { s.run(); done <- struct{}{} }()
	<-started

	// Second fire while the first is active must be skipped, not block.
	go func() { s.run(); done <- struct{}{} }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("overlapping run did not return promptly")
	}

	close(release)
	<-done
}
