// Package scheduler implements the visit scheduling and status lifecycle
// engine: the canonical store of visit records, conflict detection over
// supervisor time windows, the status transition machine, filtered queries,
// aggregate stats, and the reminder sweep.
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"site-ops-server/internal/logger"
	"site-ops-server/internal/models"
)

// Persistence is the durable backing for visit records. Implementations must
// make SaveOne atomic per record; the engine serializes calls per supervisor.
type Persistence interface {
	LoadAll() ([]models.VisitRecord, error)
	SaveOne(*models.VisitRecord) error
	DeleteOne(id string) error
}

// Engine owns the canonical collection of visit records. All mutation passes
// through it: every create, update, and transition is validated and written
// under the owning supervisor's lock, then persisted write-through.
type Engine struct {
	db  Persistence
	log logger.Logger
	now func() time.Time

	mu      sync.RWMutex
	records map[string]*models.VisitRecord

	lockMu   sync.Mutex
	supLocks map[string]*sync.Mutex
}

// NewEngine loads all visit records from persistence into memory and returns
// an engine ready to serve callers.
func NewEngine(db Persistence, log logger.Logger) (*Engine, error) {
	recs, err := db.LoadAll()
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	e := &Engine{
		db:       db,
		log:      log,
		now:      time.Now,
		records:  make(map[string]*models.VisitRecord, len(recs)),
		supLocks: make(map[string]*sync.Mutex),
	}
	for i := range recs {
		rec := recs[i]
		e.records[rec.ID] = &rec
	}
	return e, nil
}

// supervisorLock returns the mutex serializing all mutations for a
// supervisor's visit set. Conflict checks run under this lock, closing the
// check-then-act window between two bookings for the same supervisor.
func (e *Engine) supervisorLock(supervisorID string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	lock, ok := e.supLocks[supervisorID]
	if !ok {
		lock = &sync.Mutex{}
		e.supLocks[supervisorID] = lock
	}
	return lock
}

// Create validates a draft visit, checks it against the supervisor's active
// visits, and commits it with status scheduled.
func (e *Engine) Create(draft models.VisitRecord) (models.VisitRecord, error) {
	if err := validateDraft(&draft); err != nil {
		return models.VisitRecord{}, err
	}

	lock := e.supervisorLock(draft.SupervisorID)
	lock.Lock()
	defer lock.Unlock()

	start, _ := draft.StartAt()
	end, _ := draft.EndAt()
	if conflictID, found := e.findConflict(draft.SupervisorID, start, end, ""); found {
		e.log.Warn("booking rejected, window overlaps existing visit", "supervisorId", draft.SupervisorID, "conflictingId", conflictID)
		return models.VisitRecord{}, &ConflictError{SupervisorID: draft.SupervisorID, ConflictingID: conflictID}
	}

	now := e.now()
	draft.ID = uuid.New().String()
	draft.Status = models.StatusScheduled
	draft.CheckInTime = nil
	draft.CheckOutTime = nil
	draft.ReminderSent = false
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if err := e.db.SaveOne(&draft); err != nil {
		return models.VisitRecord{}, &StorageError{Op: "save", Err: err}
	}

	e.mu.Lock()
	e.records[draft.ID] = &draft
	e.mu.Unlock()

	e.log.Info("visit created", "visitId", draft.ID, "supervisorId", draft.SupervisorID, "date", draft.VisitDate, "time", draft.VisitTime)
	return draft, nil
}

// Patch carries the updatable fields of a visit. Status is deliberately
// absent: it only changes through the transition operations.
type Patch struct {
	ProjectID         *string
	ProjectName       *string
	ClientName        *string
	Location          *string
	VisitDate         *string
	VisitTime         *string
	DurationMinutes   *int
	VisitType         *models.VisitType
	Priority          *models.VisitPriority
	Notes             *string
	IsRecurring       *bool
	RecurrencePattern *models.RecurrencePattern
}

// Update applies non-status field changes. A change to the date, time, or
// duration re-runs conflict detection against the supervisor's other active
// visits before committing.
func (e *Engine) Update(id string, patch Patch) (models.VisitRecord, error) {
	return e.withRecord(id, func(rec *models.VisitRecord) error {
		windowChanged := false

		if patch.ProjectID != nil {
			rec.ProjectID = *patch.ProjectID
		}
		if patch.ProjectName != nil {
			rec.ProjectName = *patch.ProjectName
		}
		if patch.ClientName != nil {
			rec.ClientName = *patch.ClientName
		}
		if patch.Location != nil {
			rec.Location = *patch.Location
		}
		if patch.VisitDate != nil && *patch.VisitDate != rec.VisitDate {
			rec.VisitDate = *patch.VisitDate
			windowChanged = true
		}
		if patch.VisitTime != nil && *patch.VisitTime != rec.VisitTime {
			rec.VisitTime = *patch.VisitTime
			windowChanged = true
		}
		if patch.DurationMinutes != nil && *patch.DurationMinutes != rec.DurationMinutes {
			rec.DurationMinutes = *patch.DurationMinutes
			windowChanged = true
		}
		if patch.VisitType != nil {
			rec.VisitType = *patch.VisitType
		}
		if patch.Priority != nil {
			rec.Priority = *patch.Priority
		}
		if patch.Notes != nil {
			rec.Notes = *patch.Notes
		}
		if patch.IsRecurring != nil {
			rec.IsRecurring = *patch.IsRecurring
		}
		if patch.RecurrencePattern != nil {
			rec.RecurrencePattern = *patch.RecurrencePattern
		}

		if err := validateFields(rec); err != nil {
			return err
		}

		if windowChanged && rec.Status.IsActive() {
			start, _ := rec.StartAt()
			end, _ := rec.EndAt()
			if conflictID, found := e.findConflict(rec.SupervisorID, start, end, rec.ID); found {
				return &ConflictError{SupervisorID: rec.SupervisorID, ConflictingID: conflictID}
			}
		}
		return nil
	})
}

// Delete removes a visit entirely. This is an administrative operation
// outside the state machine; it succeeds from any status.
func (e *Engine) Delete(id string) error {
	supervisorID, err := e.supervisorOf(id)
	if err != nil {
		return err
	}

	lock := e.supervisorLock(supervisorID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.RLock()
	_, ok := e.records[id]
	e.mu.RUnlock()
	if !ok {
		return &NotFoundError{ID: id}
	}

	if err := e.db.DeleteOne(id); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}

	e.mu.Lock()
	delete(e.records, id)
	e.mu.Unlock()

	e.log.Info("visit deleted", "visitId", id, "supervisorId", supervisorID)
	return nil
}

// Get returns a copy of a visit record.
func (e *Engine) Get(id string) (models.VisitRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.records[id]
	if !ok {
		return models.VisitRecord{}, &NotFoundError{ID: id}
	}
	return *rec, nil
}

// List returns copies of all visit records ordered by (date, time).
func (e *Engine) List() []models.VisitRecord {
	e.mu.RLock()
	out := make([]models.VisitRecord, 0, len(e.records))
	for _, rec := range e.records {
		out = append(out, *rec)
	}
	e.mu.RUnlock()

	sortByWindow(out)
	return out
}

// supervisorOf resolves the owning supervisor of a record so its lock can be
// taken before re-reading. The supervisor of a visit never changes.
func (e *Engine) supervisorOf(id string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.records[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	return rec.SupervisorID, nil
}

// withRecord applies a mutation to a copy of the record under its
// supervisor's lock, persists the copy, and commits it on success. The stored
// record is untouched if validation or persistence fails.
func (e *Engine) withRecord(id string, apply func(*models.VisitRecord) error) (models.VisitRecord, error) {
	supervisorID, err := e.supervisorOf(id)
	if err != nil {
		return models.VisitRecord{}, err
	}

	lock := e.supervisorLock(supervisorID)
	lock.Lock()
	defer lock.Unlock()

	e.mu.RLock()
	cur, ok := e.records[id]
	var cp models.VisitRecord
	if ok {
		cp = *cur
	}
	e.mu.RUnlock()
	if !ok {
		return models.VisitRecord{}, &NotFoundError{ID: id}
	}

	if err := apply(&cp); err != nil {
		return models.VisitRecord{}, err
	}
	cp.UpdatedAt = e.now()

	if err := e.db.SaveOne(&cp); err != nil {
		return models.VisitRecord{}, &StorageError{Op: "save", Err: err}
	}

	e.mu.Lock()
	e.records[id] = &cp
	e.mu.Unlock()
	return cp, nil
}

// validateDraft checks a new visit before it enters the store.
func validateDraft(rec *models.VisitRecord) error {
	if rec.SupervisorID == "" {
		return &ValidationError{Field: "supervisorId", Reason: "required"}
	}
	if rec.VisitType == "" {
		rec.VisitType = models.TypeSiteVisit
	}
	if rec.Priority == "" {
		rec.Priority = models.PriorityMedium
	}
	return validateFields(rec)
}

// validateFields checks the invariant-bearing fields shared by create and
// update.
func validateFields(rec *models.VisitRecord) error {
	if rec.ProjectName == "" {
		return &ValidationError{Field: "projectName", Reason: "required"}
	}
	if rec.ClientName == "" {
		return &ValidationError{Field: "clientName", Reason: "required"}
	}
	if rec.Location == "" {
		return &ValidationError{Field: "location", Reason: "required"}
	}
	if _, err := time.Parse(models.VisitDateLayout, rec.VisitDate); err != nil {
		return &ValidationError{Field: "visitDate", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse(models.VisitTimeLayout, rec.VisitTime); err != nil {
		return &ValidationError{Field: "visitTime", Reason: "must be HH:MM"}
	}
	if rec.DurationMinutes < models.MinDurationMinutes || rec.DurationMinutes > models.MaxDurationMinutes {
		return &ValidationError{Field: "durationMinutes", Reason: "must be between 15 and 480"}
	}
	if !rec.VisitType.IsValid() {
		return &ValidationError{Field: "visitType", Reason: "unknown visit type"}
	}
	if !rec.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	if rec.IsRecurring && !rec.RecurrencePattern.IsValid() {
		return &ValidationError{Field: "recurrencePattern", Reason: "required for recurring visits"}
	}
	if !rec.IsRecurring && rec.RecurrencePattern != "" && !rec.RecurrencePattern.IsValid() {
		return &ValidationError{Field: "recurrencePattern", Reason: "unknown recurrence pattern"}
	}
	return nil
}
