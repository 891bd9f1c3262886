package models

import (
	"time"
)

// ProjectStatus represents the delivery status of a construction project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
)

// Project represents a construction site managed through the dashboard.
// Visits reference projects by id; the scheduling engine itself treats the
// reference as opaque.
type Project struct {
	BaseModel
	Name       string        `gorm:"size:255;not null" json:"name"`
	ClientID   string        `gorm:"size:36;index" json:"clientId"`
	ClientName string        `gorm:"size:255" json:"clientName"`
	Location   string        `gorm:"size:255" json:"location"`
	Status     ProjectStatus `gorm:"size:20;default:'planning'" json:"status"`
	StartDate  *time.Time    `json:"startDate,omitempty"`
	Summary    string        `gorm:"type:text" json:"summary"`

	// Relations
	Client User          `gorm:"foreignKey:ClientID" json:"-"`
	Visits []VisitRecord `gorm:"foreignKey:ProjectID" json:"-"`
}
