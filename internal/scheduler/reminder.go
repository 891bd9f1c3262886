package scheduler

import (
	"context"
	"errors"
	"time"

	"site-ops-server/internal/logger"
	"site-ops-server/internal/models"
)

// ReminderNotifier receives visits whose reminder window has opened. Delivery
// mechanics (SMS, email, push) are the implementation's concern; the engine
// only consumes success or failure for logging.
type ReminderNotifier interface {
	OnReminderDue(models.VisitRecord) error
}

// ClaimDueReminders flips the reminder flag on every scheduled visit whose
// start lies within [now, now+lead) and whose reminder has not been sent,
// returning copies of the claimed records. The flip is committed per record
// under the usual lock discipline, so repeated sweeps over an unchanged
// record claim it at most once.
func (e *Engine) ClaimDueReminders(now time.Time, lead time.Duration) []models.VisitRecord {
	e.mu.RLock()
	candidates := make([]string, 0)
	for id, rec := range e.records {
		if reminderDue(rec, now, lead) {
			candidates = append(candidates, id)
		}
	}
	e.mu.RUnlock()

	claimed := make([]models.VisitRecord, 0, len(candidates))
	for _, id := range candidates {
		rec, err := e.withRecord(id, func(rec *models.VisitRecord) error {
			// Re-check under the lock: another sweep or a mutation may have
			// claimed or moved the visit since the scan.
			if !reminderDue(rec, now, lead) {
				return errReminderNotDue
			}
			rec.ReminderSent = true
			return nil
		})
		if err != nil {
			if !errors.Is(err, errReminderNotDue) {
				e.log.Error("failed to claim reminder", "visitId", id, "error", err)
			}
			continue
		}
		claimed = append(claimed, rec)
	}
	return claimed
}

// errReminderNotDue short-circuits withRecord when a candidate no longer
// qualifies; it never leaves the package.
var errReminderNotDue = errors.New("reminder no longer due")

func reminderDue(rec *models.VisitRecord, now time.Time, lead time.Duration) bool {
	if rec.ReminderSent || (rec.Status != models.StatusScheduled && rec.Status != models.StatusRescheduled) {
		return false
	}
	start, err := rec.StartAt()
	if err != nil {
		return false
	}
	return !now.Before(start.Add(-lead)) && now.Before(start)
}

// Sweeper periodically claims due reminders and hands them to a notifier.
// Notification happens outside all engine locks.
type Sweeper struct {
	engine   *Engine
	notifier ReminderNotifier
	lead     time.Duration
	interval time.Duration
	log      logger.Logger

	// Observe, when set, receives each sweep's duration in seconds.
	Observe func(seconds float64)
}

// NewSweeper creates a reminder sweeper with the given lead window and tick
// interval.
func NewSweeper(engine *Engine, notifier ReminderNotifier, lead, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		notifier: notifier,
		lead:     lead,
		interval: interval,
		log:      log,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(time.Now())
		}
	}
}

// SweepOnce runs a single sweep at the given instant and returns how many
// reminders fired. Notifier failures are logged, not retried: the claim is
// already committed, keeping delivery at-most-once.
func (s *Sweeper) SweepOnce(now time.Time) int {
	started := time.Now()
	defer func() {
		if s.Observe != nil {
			s.Observe(time.Since(started).Seconds())
		}
	}()

	claimed := s.engine.ClaimDueReminders(now, s.lead)
	for _, rec := range claimed {
		if err := s.notifier.OnReminderDue(rec); err != nil {
			s.log.Error("reminder notification failed", "visitId", rec.ID, "supervisorId", rec.SupervisorID, "error", err)
		}
	}
	if len(claimed) > 0 {
		s.log.Info("reminder sweep fired", "count", len(claimed))
	}
	return len(claimed)
}
