// Package notify implements the engine's reminder port by recording in-app
// notifications. External SMS/email/push delivery hangs off the same
// notification feed and stays outside this service.
package notify

import (
	"fmt"

	"gorm.io/gorm"

	"site-ops-server/internal/logger"
	"site-ops-server/internal/metrics"
	"site-ops-server/internal/models"
)

// DBNotifier writes a Notification row for the visit's supervisor whenever a
// reminder comes due.
type DBNotifier struct {
	db      *gorm.DB
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewDBNotifier creates a notification-recording reminder notifier.
func NewDBNotifier(db *gorm.DB, log logger.Logger, m *metrics.Metrics) *DBNotifier {
	return &DBNotifier{db: db, log: log, metrics: m}
}

// OnReminderDue records the reminder for the visit's supervisor.
func (n *DBNotifier) OnReminderDue(v models.VisitRecord) error {
	note := models.Notification{
		UserID:  v.SupervisorID,
		VisitID: v.ID,
		Kind:    models.NotificationVisitReminder,
		Title:   fmt.Sprintf("Upcoming visit: %s", v.ProjectName),
		Body:    fmt.Sprintf("%s at %s on %s %s (%d min)", v.ProjectName, v.Location, v.VisitDate, v.VisitTime, v.DurationMinutes),
	}
	if err := n.db.Create(&note).Error; err != nil {
		return fmt.Errorf("recording reminder notification: %w", err)
	}

	if n.metrics != nil {
		n.metrics.RemindersSent.Inc()
	}
	n.log.Info("visit reminder recorded", "visitId", v.ID, "supervisorId", v.SupervisorID)
	return nil
}
