package models

import (
	"time"
)

// NotificationKind represents what produced a notification.
type NotificationKind string

const (
	NotificationVisitReminder NotificationKind = "visit-reminder"
	NotificationSystem        NotificationKind = "system"
)

// Notification represents an in-app notification delivered to a user.
// Visit reminders land here when the reminder sweep fires; external
// SMS/email/push delivery is out of band.
type Notification struct {
	BaseModel
	UserID  string           `gorm:"size:36;index" json:"userId"`
	VisitID string           `gorm:"size:36;index" json:"visitId,omitempty"`
	Kind    NotificationKind `gorm:"size:30;default:'system'" json:"kind"`
	Title   string           `gorm:"size:255" json:"title"`
	Body    string           `gorm:"type:text" json:"body"`
	IsRead  bool             `gorm:"default:false" json:"isRead"`
	ReadAt  *time.Time       `json:"readAt,omitempty"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
