package scheduler

import (
	"time"
)

// findConflict reports the id of an active (scheduled or in-progress) visit
// for the supervisor whose window overlaps [start, end), skipping excludeID.
// The caller must hold the supervisor's lock; this is a point-in-time scan,
// made safe by that serialization.
func (e *Engine) findConflict(supervisorID string, start, end time.Time, excludeID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, rec := range e.records {
		if id == excludeID || rec.SupervisorID != supervisorID || !rec.Status.IsActive() {
			continue
		}
		otherStart, err := rec.StartAt()
		if err != nil {
			continue
		}
		otherEnd, err := rec.EndAt()
		if err != nil {
			continue
		}
		// Half-open intervals [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
		if start.Before(otherEnd) && otherStart.Before(end) {
			return id, true
		}
	}
	return "", false
}
