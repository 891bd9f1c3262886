package models

import (
	"time"
)

// VisitStatus represents the lifecycle status of a site visit.
type VisitStatus string

const (
	StatusScheduled   VisitStatus = "scheduled"
	StatusInProgress  VisitStatus = "in-progress"
	StatusCompleted   VisitStatus = "completed"
	StatusCancelled   VisitStatus = "cancelled"
	StatusRescheduled VisitStatus = "rescheduled"
)

// ValidStatuses is the set of allowed visit statuses.
var ValidStatuses = []VisitStatus{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusRescheduled}

// IsValid checks if a status is recognized.
func (s VisitStatus) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsActive reports whether the status participates in conflict detection.
func (s VisitStatus) IsActive() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// IsTerminal reports whether no further transitions are permitted.
func (s VisitStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// VisitType classifies a site visit.
type VisitType string

const (
	TypeSiteVisit  VisitType = "site-visit"
	TypeMeeting    VisitType = "meeting"
	TypeInspection VisitType = "inspection"
	TypeDelivery   VisitType = "delivery"
)

// ValidVisitTypes is the set of allowed visit types.
var ValidVisitTypes = []VisitType{TypeSiteVisit, TypeMeeting, TypeInspection, TypeDelivery}

// IsValid checks if a visit type is recognized.
func (t VisitType) IsValid() bool {
	for _, v := range ValidVisitTypes {
		if t == v {
			return true
		}
	}
	return false
}

// VisitPriority classifies the urgency of a visit for sorting and alerts.
type VisitPriority string

const (
	PriorityLow    VisitPriority = "low"
	PriorityMedium VisitPriority = "medium"
	PriorityHigh   VisitPriority = "high"
	PriorityUrgent VisitPriority = "urgent"
)

// ValidPriorities is the set of allowed priorities.
var ValidPriorities = []VisitPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// IsValid checks if a priority is recognized.
func (p VisitPriority) IsValid() bool {
	for _, v := range ValidPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// RecurrencePattern describes how a recurring visit repeats. Each occurrence
// is still an independent record; the engine never expands the pattern.
type RecurrencePattern string

const (
	RecurDaily    RecurrencePattern = "daily"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
)

// ValidRecurrencePatterns is the set of allowed recurrence patterns.
var ValidRecurrencePatterns = []RecurrencePattern{RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly}

// IsValid checks if a recurrence pattern is recognized.
func (r RecurrencePattern) IsValid() bool {
	for _, v := range ValidRecurrencePatterns {
		if r == v {
			return true
		}
	}
	return false
}

// Layouts for the visit date and start time fields.
const (
	VisitDateLayout = "2006-01-02"
	VisitTimeLayout = "15:04"
)

// Duration bounds in minutes for a single visit.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
)

// VisitRecord represents one scheduled or historical site visit.
type VisitRecord struct {
	BaseModel
	SupervisorID      string            `gorm:"size:36;index" json:"supervisorId"`
	ProjectID         string            `gorm:"size:36;index" json:"projectId"`
	ProjectName       string            `gorm:"size:255" json:"projectName"`
	ClientName        string            `gorm:"size:255" json:"clientName"`
	Location          string            `gorm:"size:255" json:"location"`
	VisitDate         string            `gorm:"size:10;index" json:"visitDate"` // YYYY-MM-DD
	VisitTime         string            `gorm:"size:5" json:"visitTime"`        // HH:MM
	DurationMinutes   int               `json:"durationMinutes"`
	VisitType         VisitType         `gorm:"size:20;default:'site-visit'" json:"visitType"`
	Priority          VisitPriority     `gorm:"size:20;default:'medium'" json:"priority"`
	Status            VisitStatus       `gorm:"size:20;default:'scheduled'" json:"status"`
	Notes             string            `gorm:"type:text" json:"notes"`
	CheckInTime       *time.Time        `json:"checkInTime,omitempty"`
	CheckOutTime      *time.Time        `json:"checkOutTime,omitempty"`
	IsRecurring       bool              `gorm:"default:false" json:"isRecurring"`
	RecurrencePattern RecurrencePattern `gorm:"size:20" json:"recurrencePattern,omitempty"`
	ReminderSent      bool              `gorm:"default:false" json:"reminderSent"`
}

// StartAt returns the scheduled start instant of the visit.
func (v *VisitRecord) StartAt() (time.Time, error) {
	return time.ParseInLocation(VisitDateLayout+" "+VisitTimeLayout, v.VisitDate+" "+v.VisitTime, time.Local)
}

// EndAt returns the scheduled end instant, start plus duration.
func (v *VisitRecord) EndAt() (time.Time, error) {
	start, err := v.StartAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(v.DurationMinutes) * time.Minute), nil
}
