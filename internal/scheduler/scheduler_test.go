package scheduler

import (
	"errors"
	"sync"
	"testing"

	"site-ops-server/internal/logger"
	"site-ops-server/internal/models"
)

// fakePersistence is an in-memory Persistence with failure injection.
type fakePersistence struct {
	mu      sync.Mutex
	records map[string]models.VisitRecord
	saveErr error
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{records: make(map[string]models.VisitRecord)}
}

func (p *fakePersistence) LoadAll() ([]models.VisitRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.VisitRecord, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec)
	}
	return out, nil
}

func (p *fakePersistence) SaveOne(rec *models.VisitRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.records[rec.ID] = *rec
	return nil
}

func (p *fakePersistence) DeleteOne(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, id)
	return nil
}

func (p *fakePersistence) get(id string) (models.VisitRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[id]
	return rec, ok
}

func newTestEngine(t *testing.T) (*Engine, *fakePersistence) {
	t.Helper()
	db := newFakePersistence()
	engine, err := NewEngine(db, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, db
}

// draft builds a valid visit draft for a supervisor at the given window.
func draft(supervisorID, date, tm string, minutes int) models.VisitRecord {
	return models.VisitRecord{
		SupervisorID:    supervisorID,
		ProjectName:     "Villa Kensington",
		ClientName:      "Harper Estates",
		Location:        "12 Kensington Rd",
		VisitDate:       date,
		VisitTime:       tm,
		DurationMinutes: minutes,
	}
}

func mustCreate(t *testing.T, engine *Engine, rec models.VisitRecord) models.VisitRecord {
	t.Helper()
	created, err := engine.Create(rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func TestCreateAssignsLifecycleFields(t *testing.T) {
	engine, db := newTestEngine(t)

	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))
	if created.ID == "" {
		t.Error("expected non-empty id")
	}
	if created.Status != models.StatusScheduled {
		t.Errorf("status = %q, want %q", created.Status, models.StatusScheduled)
	}
	if created.CheckInTime != nil || created.CheckOutTime != nil {
		t.Error("expected no check-in/check-out on a new visit")
	}
	if created.ReminderSent {
		t.Error("expected reminder flag unset on a new visit")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.Before(created.CreatedAt) {
		t.Errorf("bad timestamps: created=%v updated=%v", created.CreatedAt, created.UpdatedAt)
	}
	if created.VisitType != models.TypeSiteVisit || created.Priority != models.PriorityMedium {
		t.Errorf("defaults not applied: type=%q priority=%q", created.VisitType, created.Priority)
	}
	if _, ok := db.get(created.ID); !ok {
		t.Error("record not written through to persistence")
	}
}

func TestCreateValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(*models.VisitRecord)
		field  string
	}{
		{"missing supervisor", func(v *models.VisitRecord) { v.SupervisorID = "" }, "supervisorId"},
		{"missing project name", func(v *models.VisitRecord) { v.ProjectName = "" }, "projectName"},
		{"missing client name", func(v *models.VisitRecord) { v.ClientName = "" }, "clientName"},
		{"missing location", func(v *models.VisitRecord) { v.Location = "" }, "location"},
		{"bad date", func(v *models.VisitRecord) { v.VisitDate = "25/10/2024" }, "visitDate"},
		{"bad time", func(v *models.VisitRecord) { v.VisitTime = "9am" }, "visitTime"},
		{"duration too short", func(v *models.VisitRecord) { v.DurationMinutes = 14 }, "durationMinutes"},
		{"duration too long", func(v *models.VisitRecord) { v.DurationMinutes = 481 }, "durationMinutes"},
		{"unknown type", func(v *models.VisitRecord) { v.VisitType = "inspection-x" }, "visitType"},
		{"unknown priority", func(v *models.VisitRecord) { v.Priority = "whenever" }, "priority"},
		{"recurring without pattern", func(v *models.VisitRecord) { v.IsRecurring = true }, "recurrencePattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := draft("sup-1", "2024-10-25", "09:00", 60)
			tt.mutate(&v)
			_, err := engine.Create(v)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("field = %q, want %q", validationErr.Field, tt.field)
			}
		})
	}
}

func TestCreateDurationBoundsInclusive(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Create(draft("sup-1", "2024-10-25", "06:00", 15)); err != nil {
		t.Errorf("15 minutes should be allowed: %v", err)
	}
	if _, err := engine.Create(draft("sup-1", "2024-10-26", "06:00", 480)); err != nil {
		t.Errorf("480 minutes should be allowed: %v", err)
	}
}

func TestCreateConflict(t *testing.T) {
	engine, _ := newTestEngine(t)

	first := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))

	// 10:00-11:00 overlaps 09:00-11:00
	_, err := engine.Create(draft("sup-1", "2024-10-25", "10:00", 60))
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflictErr.ConflictingID != first.ID {
		t.Errorf("conflicting id = %q, want %q", conflictErr.ConflictingID, first.ID)
	}
}

func TestCreateNoConflictAcrossSupervisors(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))
	if _, err := engine.Create(draft("sup-2", "2024-10-25", "09:00", 120)); err != nil {
		t.Errorf("different supervisor should not conflict: %v", err)
	}
}

func TestCreateAdjacentWindowsAllowed(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))
	// [09:00,11:00) then [11:00,12:00): half-open windows, back to back is fine
	if _, err := engine.Create(draft("sup-1", "2024-10-25", "11:00", 60)); err != nil {
		t.Errorf("adjacent window should not conflict: %v", err)
	}
}

func TestCancelledVisitDoesNotConflict(t *testing.T) {
	engine, _ := newTestEngine(t)

	first := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))
	if _, err := engine.Cancel(first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := engine.Create(draft("sup-1", "2024-10-25", "09:00", 120)); err != nil {
		t.Errorf("cancelled visit should not block the slot: %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	engine, db := newTestEngine(t)

	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	notes := "bring the revised drawings"
	priority := models.PriorityUrgent
	updated, err := engine.Update(created.ID, Patch{Notes: &notes, Priority: &priority})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Notes != notes || updated.Priority != priority {
		t.Errorf("patch not applied: notes=%q priority=%q", updated.Notes, updated.Priority)
	}
	if updated.Status != models.StatusScheduled {
		t.Errorf("status = %q, update must not touch status", updated.Status)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("updatedAt not refreshed")
	}
	if persisted, _ := db.get(created.ID); persisted.Notes != notes {
		t.Error("update not written through to persistence")
	}
}

func TestUpdateWindowRechecksConflicts(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 120))
	second := mustCreate(t, engine, draft("sup-1", "2024-10-25", "14:00", 60))

	newTime := "10:30"
	_, err := engine.Update(second.ID, Patch{VisitTime: &newTime})
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	// The rejected update must leave the record unchanged
	got, err := engine.Get(second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VisitTime != "14:00" {
		t.Errorf("visit time = %q, want untouched %q", got.VisitTime, "14:00")
	}
}

func TestUpdateValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))

	badDuration := 5
	_, err := engine.Update(created.ID, Patch{DurationMinutes: &badDuration})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	got, _ := engine.Get(created.ID)
	if got.DurationMinutes != 60 {
		t.Errorf("duration = %d, want untouched 60", got.DurationMinutes)
	}
}

func TestUpdateNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	notes := "x"
	_, err := engine.Update("missing-id", Patch{Notes: &notes})
	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestDelete(t *testing.T) {
	engine, db := newTestEngine(t)

	created := mustCreate(t, engine, draft("sup-1", "2024-10-25", "09:00", 60))
	if err := engine.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := engine.Get(created.ID); err == nil {
		t.Error("expected NotFoundError after delete")
	}
	if _, ok := db.get(created.ID); ok {
		t.Error("record still present in persistence")
	}

	// Deleting again reports not found; callers treat that as non-fatal
	err := engine.Delete(created.ID)
	var notFoundErr *NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("second delete err = %v, want NotFoundError", err)
	}
}

func TestStorageFailureLeavesStoreUntouched(t *testing.T) {
	engine, db := newTestEngine(t)

	db.saveErr = errors.New("disk on fire")
	_, err := engine.Create(draft("sup-1", "2024-10-25", "09:00", 60))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("err = %v, want StorageError", err)
	}
	if got := engine.List(); len(got) != 0 {
		t.Errorf("got %d records after failed save, want 0", len(got))
	}

	// The slot stays bookable once storage recovers
	db.saveErr = nil
	if _, err := engine.Create(draft("sup-1", "2024-10-25", "09:00", 60)); err != nil {
		t.Errorf("create after recovery: %v", err)
	}
}

func TestConcurrentCreatesSameSupervisor(t *testing.T) {
	engine, _ := newTestEngine(t)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Create(draft("sup-1", "2024-10-25", "09:00", 120))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) {
			t.Errorf("unexpected error: %v", err)
			continue
		}
		conflicts++
	}
	if ok != 1 {
		t.Errorf("%d creates succeeded, want exactly 1", ok)
	}
	if conflicts != attempts-1 {
		t.Errorf("%d conflicts, want %d", conflicts, attempts-1)
	}
}

func TestLoadExistingRecordsOnStartup(t *testing.T) {
	db := newFakePersistence()
	db.records["vr-1"] = models.VisitRecord{
		BaseModel:       models.BaseModel{ID: "vr-1"},
		SupervisorID:    "sup-1",
		ProjectName:     "Harbor Tower",
		ClientName:      "Meridian Group",
		Location:        "Dock 4",
		VisitDate:       "2024-10-25",
		VisitTime:       "09:00",
		DurationMinutes: 120,
		Status:          models.StatusScheduled,
	}

	engine, err := NewEngine(db, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := engine.Get("vr-1"); err != nil {
		t.Fatalf("loaded record missing: %v", err)
	}

	// Loaded records participate in conflict detection
	_, err = engine.Create(draft("sup-1", "2024-10-25", "10:00", 30))
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("err = %v, want ConflictError against loaded record", err)
	}
}
