package repository

import (
	"context"

	"github.com/LutfiBK25/qulron/internal/models"
	"github.com/LutfiBK25/qulron/internal/storage"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *storage.Postgres
}

func NewUserRepository(db *storage.Postgres) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&users).Error

	return users, err
}
