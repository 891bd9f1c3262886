// Package storage provides the gorm-backed persistence adapter for the
// scheduling engine.
package storage

import (
	"gorm.io/gorm"

	"site-ops-server/internal/models"
)

// VisitStore implements the engine's Persistence port over the visit_records
// table.
type VisitStore struct {
	db *gorm.DB
}

// NewVisitStore creates a gorm-backed visit store.
func NewVisitStore(db *gorm.DB) *VisitStore {
	return &VisitStore{db: db}
}

// LoadAll reads every visit record.
func (s *VisitStore) LoadAll() ([]models.VisitRecord, error) {
	var recs []models.VisitRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// SaveOne writes a single record, inserting or updating by id.
func (s *VisitStore) SaveOne(rec *models.VisitRecord) error {
	return s.db.Save(rec).Error
}

// DeleteOne removes a single record by id.
func (s *VisitStore) DeleteOne(id string) error {
	return s.db.Delete(&models.VisitRecord{}, "id = ?", id).Error
}
