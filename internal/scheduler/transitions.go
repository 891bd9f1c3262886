package scheduler

import (
	"time"

	"site-ops-server/internal/models"
)

// legalTransitions is the closed transition table. A persisted "rescheduled"
// status behaves like "scheduled": rescheduling normalizes back to scheduled
// within the same atomic operation, but rows written by earlier versions may
// still carry the marker.
var legalTransitions = map[models.VisitStatus][]models.VisitStatus{
	models.StatusScheduled:   {models.StatusInProgress, models.StatusCancelled, models.StatusRescheduled},
	models.StatusRescheduled: {models.StatusInProgress, models.StatusCancelled, models.StatusRescheduled},
	models.StatusInProgress:  {models.StatusCompleted, models.StatusCancelled},
}

func canTransition(from, to models.VisitStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Start moves a scheduled visit to in-progress and stamps the check-in time.
func (e *Engine) Start(id string) (models.VisitRecord, error) {
	rec, err := e.withRecord(id, func(rec *models.VisitRecord) error {
		if !canTransition(rec.Status, models.StatusInProgress) {
			return &IllegalTransitionError{From: rec.Status, To: models.StatusInProgress}
		}
		now := e.now()
		rec.Status = models.StatusInProgress
		rec.CheckInTime = &now
		return nil
	})
	if err != nil {
		return models.VisitRecord{}, err
	}
	e.log.Info("visit started", "visitId", rec.ID, "supervisorId", rec.SupervisorID)
	return rec, nil
}

// Complete moves an in-progress visit to completed and stamps the check-out
// time. Completed is terminal.
func (e *Engine) Complete(id string) (models.VisitRecord, error) {
	rec, err := e.withRecord(id, func(rec *models.VisitRecord) error {
		if !canTransition(rec.Status, models.StatusCompleted) {
			return &IllegalTransitionError{From: rec.Status, To: models.StatusCompleted}
		}
		now := e.now()
		rec.Status = models.StatusCompleted
		rec.CheckOutTime = &now
		return nil
	})
	if err != nil {
		return models.VisitRecord{}, err
	}
	e.log.Info("visit completed", "visitId", rec.ID, "supervisorId", rec.SupervisorID)
	return rec, nil
}

// Cancel aborts a scheduled or in-progress visit. Cancelled is terminal; no
// timestamps are stamped.
func (e *Engine) Cancel(id string) (models.VisitRecord, error) {
	rec, err := e.withRecord(id, func(rec *models.VisitRecord) error {
		if !canTransition(rec.Status, models.StatusCancelled) {
			return &IllegalTransitionError{From: rec.Status, To: models.StatusCancelled}
		}
		rec.Status = models.StatusCancelled
		return nil
	})
	if err != nil {
		return models.VisitRecord{}, err
	}
	e.log.Info("visit cancelled", "visitId", rec.ID, "supervisorId", rec.SupervisorID)
	return rec, nil
}

// Reschedule moves a scheduled visit to a new date and time. The new window
// is conflict-checked against the supervisor's other active visits, the
// reminder is re-armed for the new start, and the record comes out scheduled:
// rescheduled is a transient marker in the transition table, not a state a
// record parks in.
func (e *Engine) Reschedule(id, newDate, newTime string) (models.VisitRecord, error) {
	if _, err := time.Parse(models.VisitDateLayout, newDate); err != nil {
		return models.VisitRecord{}, &ValidationError{Field: "newDate", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse(models.VisitTimeLayout, newTime); err != nil {
		return models.VisitRecord{}, &ValidationError{Field: "newTime", Reason: "must be HH:MM"}
	}

	rec, err := e.withRecord(id, func(rec *models.VisitRecord) error {
		if !canTransition(rec.Status, models.StatusRescheduled) {
			return &IllegalTransitionError{From: rec.Status, To: models.StatusRescheduled}
		}

		rec.VisitDate = newDate
		rec.VisitTime = newTime
		start, _ := rec.StartAt()
		end, _ := rec.EndAt()
		if conflictID, found := e.findConflict(rec.SupervisorID, start, end, rec.ID); found {
			return &ConflictError{SupervisorID: rec.SupervisorID, ConflictingID: conflictID}
		}

		rec.Status = models.StatusScheduled
		rec.ReminderSent = false
		return nil
	})
	if err != nil {
		return models.VisitRecord{}, err
	}
	e.log.Info("visit rescheduled", "visitId", rec.ID, "supervisorId", rec.SupervisorID, "date", newDate, "time", newTime)
	return rec, nil
}
