package repository

import (
	"context"

	"github.com/LutfiBK25/qulron/internal/models"
	"github.com/LutfiBK25/qulron/internal/storage"
	"gorm.io/gorm"
)

type LoadRepository struct {
	db *storage.Postgres
}

func NewLoadRepository(db *storage.Postgres) *LoadRepository {
	return &LoadRepository{db: db}
}

// FindActiveByPhone returns the live load for a phone number, or nil when
// the number has no order in a live state.
func (r *LoadRepository) FindActiveByPhone(ctx context.Context, phone string) (*models.LoadMaster, error) {
	var load models.LoadMaster
	err := r.db.DB.WithContext(ctx).
		Where("phone_number = ? AND load_status IN ?", phone, models.LiveStatuses).
		First(&load).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &load, err
}
