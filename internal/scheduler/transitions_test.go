package scheduler

import (
	"errors"
	"testing"

	"site-ops-server/internal/models"
)

func TestStartVisit(t *testing.T) {
	engine, _ := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	started, err := engine.Start(created.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", started.Status, models.StatusInProgress)
	}
	if started.CheckInTime == nil {
		t.Error("expected check-in time to be stamped")
	}
	if started.CheckOutTime != nil {
		t.Error("check-out must not be stamped on start")
	}

	// Starting twice is illegal
	_, err = engine.Start(created.ID)
	var transitionErr *IllegalTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("second start err = %v, want IllegalTransitionError", err)
	}
	if transitionErr.From != models.StatusInProgress || transitionErr.To != models.StatusInProgress {
		t.Errorf("transition error = %v, want in-progress -> in-progress rejected", transitionErr)
	}
}

func TestCompleteVisit(t *testing.T) {
	engine, _ := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	if _, err := engine.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed, err := engine.Complete(created.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("status = %q, want %q", completed.Status, models.StatusCompleted)
	}
	if completed.CheckOutTime == nil {
		t.Error("expected check-out time to be stamped")
	}

	// Completed is terminal: cancelling afterwards is illegal
	_, err = engine.Cancel(created.ID)
	var transitionErr *IllegalTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("cancel after complete err = %v, want IllegalTransitionError", err)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	engine, _ := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	_, err := engine.Complete(created.ID)
	var transitionErr *IllegalTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want IllegalTransitionError", err)
	}

	got, _ := engine.Get(created.ID)
	if got.CheckOutTime != nil {
		t.Error("rejected transition must not stamp check-out")
	}
}

func TestCancelFromScheduledAndInProgress(t *testing.T) {
	engine, _ := newTestEngine(t)

	scheduled := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))
	cancelled, err := engine.Cancel(scheduled.ID)
	if err != nil {
		t.Fatalf("cancel scheduled: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, models.StatusCancelled)
	}

	inProgress := mustCreate(t, engine, draft("sup-1", "2024-10-26", "09:00", 60))
	if _, err := engine.Start(inProgress.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	aborted, err := engine.Cancel(inProgress.ID)
	if err != nil {
		t.Fatalf("cancel in-progress: %v", err)
	}
	if aborted.Status != models.StatusCancelled {
		t.Errorf("status = %q, want %q", aborted.Status, models.StatusCancelled)
	}
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	engine, _ := newTestEngine(t)

	cancelled := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))
	if _, err := engine.Cancel(cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	ops := map[string]func(string) (models.VisitRecord, error){
		"start":    engine.Start,
		"complete": engine.Complete,
		"cancel":   engine.Cancel,
	}
	for name, op := range ops {
		if _, err := op(cancelled.ID); err == nil {
			t.Errorf("%s on cancelled visit should fail", name)
		}
	}
	if _, err := engine.Reschedule(cancelled.ID, "2024-10-28", "14:00"); err == nil {
		t.Error("reschedule on cancelled visit should fail")
	}
}

func TestReschedule(t *testing.T) {
	engine, db := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	moved, err := engine.Reschedule(created.ID, "2024-10-28", "14:00")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.VisitDate != "2024-10-28" || moved.VisitTime != "14:00" {
		t.Errorf("window = %s %s, want 2024-10-28 14:00", moved.VisitDate, moved.VisitTime)
	}
	// Rescheduled is a transient marker: the record comes out scheduled
	if moved.Status != models.StatusScheduled {
		t.Errorf("status = %q, want %q", moved.Status, models.StatusScheduled)
	}
	if moved.ReminderSent {
		t.Error("reschedule must re-arm the reminder for the new window")
	}
	if persisted, _ := db.get(created.ID); persisted.VisitDate != "2024-10-28" {
		t.Error("reschedule not written through to persistence")
	}

	// A rescheduled visit can go through its normal lifecycle
	if _, err := engine.Start(created.ID); err != nil {
		t.Errorf("start after reschedule: %v", err)
	}
}

func TestRescheduleConflict(t *testing.T) {
	engine, _ := newTestEngine(t)

	blocker := mustCreate(t, engine, draft("sup-1", "2024-10-28", "14:00", 120))
	second := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	_, err := engine.Reschedule(second.ID, "2024-10-28", "15:00")
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflictErr.ConflictingID != blocker.ID {
		t.Errorf("conflicting id = %q, want %q", conflictErr.ConflictingID, blocker.ID)
	}

	// The rejected reschedule leaves the original window in place
	got, _ := engine.Get(second.ID)
	if got.VisitDate != "2024-10-25" || got.VisitTime != "09:00" || got.Status != models.StatusScheduled {
		t.Errorf("record changed by rejected reschedule: %s %s %s", got.VisitDate, got.VisitTime, got.Status)
	}
}

func TestRescheduleValidatesWindow(t *testing.T) {
	engine, _ := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	if _, err := engine.Reschedule(created.ID, "28-10-2024", "14:00"); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := engine.Reschedule(created.ID, "2024-10-28", "2pm"); err == nil {
		t.Error("expected error for malformed time")
	}
}

func TestRescheduleInProgressIsIllegal(t *testing.T) {
	engine, _ := newTestEngine(t)
	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))
	if _, err := engine.Start(created.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := engine.Reschedule(created.ID, "2024-10-28", "14:00")
	var transitionErr *IllegalTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want IllegalTransitionError", err)
	}
	if transitionErr.From != models.StatusInProgress || transitionErr.To != models.StatusRescheduled {
		t.Errorf("transition error = %v, want in-progress -> rescheduled rejected", transitionErr)
	}
}
