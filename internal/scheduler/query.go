package scheduler

import (
	"sort"
	"strings"

	"site-ops-server/internal/models"
)

// View partitions query results by date relative to the reference date.
type View string

const (
	ViewAll      View = "all"
	ViewToday    View = "today"
	ViewUpcoming View = "upcoming"
)

// Filter describes a query over the visit set. Zero-valued fields are
// ignored; set fields compose by logical AND.
type Filter struct {
	Search       string             // case-insensitive substring over project, client, location
	Status       models.VisitStatus // exact match
	VisitType    models.VisitType   // exact match
	SupervisorID string             // exact match
	View         View               // defaults to ViewAll
	Reference    string             // YYYY-MM-DD reference date for views and stats; defaults to the engine's current date
	From         string             // inclusive lower date bound
	To           string             // inclusive upper date bound
}

// referenceDate resolves the filter's reference date, falling back to the
// engine clock.
func (e *Engine) referenceDate(f Filter) string {
	if f.Reference != "" {
		return f.Reference
	}
	return e.now().Format(models.VisitDateLayout)
}

// Query returns copies of the visits matching the filter, ordered ascending
// by (date, time). An empty result is a normal outcome.
func (e *Engine) Query(f Filter) []models.VisitRecord {
	ref := e.referenceDate(f)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	e.mu.RLock()
	out := make([]models.VisitRecord, 0)
	for _, rec := range e.records {
		if matches(rec, f, ref, search) {
			out = append(out, *rec)
		}
	}
	e.mu.RUnlock()

	sortByWindow(out)
	return out
}

func matches(rec *models.VisitRecord, f Filter, ref, search string) bool {
	if f.SupervisorID != "" && rec.SupervisorID != f.SupervisorID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.VisitType != "" && rec.VisitType != f.VisitType {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(rec.ProjectName), search) &&
		!strings.Contains(strings.ToLower(rec.ClientName), search) &&
		!strings.Contains(strings.ToLower(rec.Location), search) {
		return false
	}
	// ISO dates compare correctly as strings.
	switch f.View {
	case ViewToday:
		if rec.VisitDate != ref {
			return false
		}
	case ViewUpcoming:
		if rec.VisitDate <= ref {
			return false
		}
	}
	if f.From != "" && rec.VisitDate < f.From {
		return false
	}
	if f.To != "" && rec.VisitDate > f.To {
		return false
	}
	return true
}

// sortByWindow orders visits ascending by (date, time), ties broken by id for
// a stable timeline.
func sortByWindow(recs []models.VisitRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].VisitDate != recs[j].VisitDate {
			return recs[i].VisitDate < recs[j].VisitDate
		}
		if recs[i].VisitTime != recs[j].VisitTime {
			return recs[i].VisitTime < recs[j].VisitTime
		}
		return recs[i].ID < recs[j].ID
	})
}
