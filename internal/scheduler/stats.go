package scheduler

import (
	"site-ops-server/internal/models"
)

// Stats holds aggregate counts over a filtered visit set.
type Stats struct {
	Total      int `json:"total"`
	Today      int `json:"today"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Cancelled  int `json:"cancelled"`
	Overdue    int `json:"overdue"`
}

// Stats computes counts on demand from the visits matching the filter.
// Pending counts scheduled visits; overdue counts scheduled visits dated
// before the reference date.
func (e *Engine) Stats(f Filter) Stats {
	ref := e.referenceDate(f)

	var s Stats
	for _, rec := range e.Query(f) {
		s.Total++
		if rec.VisitDate == ref {
			s.Today++
		}
		switch rec.Status {
		case models.StatusCompleted:
			s.Completed++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusScheduled, models.StatusRescheduled:
			s.Pending++
			if rec.VisitDate < ref {
				s.Overdue++
			}
		case models.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
