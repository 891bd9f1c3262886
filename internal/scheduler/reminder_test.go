package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"site-ops-server/internal/logger"
	"site-ops-server/internal/models"
)

// fakeNotifier records reminder deliveries and can be made to fail.
type fakeNotifier struct {
	mu      sync.Mutex
	visits  []models.VisitRecord
	failErr error
}

func (n *fakeNotifier) OnReminderDue(v models.VisitRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr != nil {
		return n.failErr
	}
	n.visits = append(n.visits, v)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.visits)
}

// visitStartingIn books a visit whose window opens the given duration from
// now.
func visitStartingIn(t *testing.T, engine *Engine, supervisorID string, in time.Duration) models.VisitRecord {
	t.Helper()
	start := time.Now().Add(in)
	return mustCreate(t, engine, draft(
		supervisorID,
		start.Format(models.VisitDateLayout),
		start.Format(models.VisitTimeLayout),
		60,
	))
}

func newTestSweeper(engine *Engine, notifier ReminderNotifier, lead time.Duration) *Sweeper {
	return NewSweeper(engine, notifier, lead, time.Minute, logger.NopLogger{})
}

func TestSweepFiresOnceInsideWindow(t *testing.T) {
	engine, db := newTestEngine(t)
	notifier := &fakeNotifier{}
	sweeper := newTestSweeper(engine, notifier, time.Hour)

	created := visitStartingIn(t, engine, "sup-1", 30*time.Minute)

	if fired := sweeper.SweepOnce(time.Now()); fired != 1 {
		t.Fatalf("first sweep fired %d, want 1", fired)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.count())
	}

	// Repeated sweeps against the unchanged record stay silent
	for i := 0; i < 3; i++ {
		if fired := sweeper.SweepOnce(time.Now()); fired != 0 {
			t.Fatalf("repeat sweep fired %d, want 0", fired)
		}
	}
	if notifier.count() != 1 {
		t.Errorf("notifier called %d times after repeats, want 1", notifier.count())
	}

	got, _ := engine.Get(created.ID)
	if !got.ReminderSent {
		t.Error("reminder flag not persisted on the record")
	}
	if persisted, _ := db.get(created.ID); !persisted.ReminderSent {
		t.Error("reminder flag not written through to persistence")
	}
}

func TestSweepIgnoresVisitsOutsideWindow(t *testing.T) {
	engine, _ := newTestEngine(t)
	notifier := &fakeNotifier{}
	sweeper := newTestSweeper(engine, notifier, time.Hour)

	visitStartingIn(t, engine, "sup-1", 3*time.Hour)

	if fired := sweeper.SweepOnce(time.Now()); fired != 0 {
		t.Errorf("sweep fired %d for a visit outside the lead window, want 0", fired)
	}
}

func TestSweepIgnoresStartedVisits(t *testing.T) {
	engine, _ := newTestEngine(t)
	notifier := &fakeNotifier{}
	sweeper := newTestSweeper(engine, notifier, time.Hour)

	created := visitStartingIn(t, engine, "sup-1", 30*time.Minute)
	if _, err := engine.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if fired := sweeper.SweepOnce(time.Now()); fired != 0 {
		t.Errorf("sweep fired %d for an in-progress visit, want 0", fired)
	}
}

func TestSweepClaimsBeforeNotifying(t *testing.T) {
	engine, _ := newTestEngine(t)
	notifier := &fakeNotifier{failErr: errors.New("sms gateway down")}
	sweeper := newTestSweeper(engine, notifier, time.Hour)

	created := visitStartingIn(t, engine, "sup-1", 30*time.Minute)

	// The claim commits even though delivery fails: at-most-once, no retry
	if fired := sweeper.SweepOnce(time.Now()); fired != 1 {
		t.Fatalf("sweep fired %d, want 1", fired)
	}
	got, _ := engine.Get(created.ID)
	if !got.ReminderSent {
		t.Error("claim should commit before delivery is attempted")
	}

	notifier.failErr = nil
	if fired := sweeper.SweepOnce(time.Now()); fired != 0 {
		t.Errorf("sweep retried a claimed reminder: fired %d, want 0", fired)
	}
}

func TestRescheduleRearmsReminder(t *testing.T) {
	engine, _ := newTestEngine(t)
	notifier := &fakeNotifier{}
	sweeper := newTestSweeper(engine, notifier, time.Hour)

	created := visitStartingIn(t, engine, "sup-1", 30*time.Minute)
	if fired := sweeper.SweepOnce(time.Now()); fired != 1 {
		t.Fatalf("sweep fired %d, want 1", fired)
	}

	// Move the visit to a new window inside the lead again
	newStart := time.Now().Add(45 * time.Minute)
	if _, err := engine.Reschedule(created.ID, newStart.Format(models.VisitDateLayout), newStart.Format(models.VisitTimeLayout)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	if fired := sweeper.SweepOnce(time.Now()); fired != 1 {
		t.Errorf("sweep after reschedule fired %d, want 1", fired)
	}
	if notifier.count() != 2 {
		t.Errorf("notifier called %d times, want 2", notifier.count())
	}
}

func TestClaimDueRemindersWindowBounds(t *testing.T) {
	engine, _ := newTestEngine(t)

	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))
	start, err := created.StartAt()
	if err != nil {
		t.Fatalf("start at: %v", err)
	}
	lead := time.Hour

	// Just before the window opens: nothing due
	if claimed := engine.ClaimDueReminders(start.Add(-lead-time.Second), lead); len(claimed) != 0 {
		t.Errorf("claimed %d before window opens, want 0", len(claimed))
	}
	// At the start of the visit the reminder is no longer useful
	if claimed := engine.ClaimDueReminders(start, lead); len(claimed) != 0 {
		t.Errorf("claimed %d at visit start, want 0", len(claimed))
	}
	// Inside the window it fires
	if claimed := engine.ClaimDueReminders(start.Add(-30*time.Minute), lead); len(claimed) != 1 {
		t.Errorf("claimed %d inside window, want 1", len(claimed))
	}
}
