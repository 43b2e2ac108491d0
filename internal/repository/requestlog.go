package repository

import (
	"context"
	"time"

	"github.com/LutfiBK25/qulron/internal/models"
	"github.com/LutfiBK25/qulron/internal/storage"
)

type RequestLogRepository struct {
	db *storage.Postgres
}

func NewRequestLogRepository(db *storage.Postgres) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

func (r *RequestLogRepository) CreateBatch(ctx context.Context, logs []models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

func (r *RequestLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

func (r *RequestLogRepository) CountByStatusCodeRange(ctx context.Context, minStatus, maxStatus int, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Where("status_code BETWEEN ? AND ?", minStatus, maxStatus).
		Count(&count).Error

	return count, err
}

func (r *RequestLogRepository) GetAverageResponseTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg *float64
	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("AVG(response_time_ms)").
		Scan(&avg).Error

	if err != nil || avg == nil {
		return 0, err
	}

	return *avg, nil
}

func (r *RequestLogRepository) GetTopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]map[string]interface{}, error) {
	var results []map[string]interface{}
	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("path, COUNT(*) as count").
		Group("path").
		Order("count DESC").
		Limit(limit).
		Find(&results).Error

	return results, err
}

func (r *RequestLogRepository) DeleteOldLogs(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.RequestLog{})

	return result.RowsAffected, result.Error
}
