package service

import (
	"context"
	"time"

	"github.com/LutfiBK25/qulron/internal/repository"
)

type AnalyticsSummary struct {
	TotalRequests       int64                    `json:"total_requests"`
	SuccessfulRequests  int64                    `json:"successful_requests"`
	ClientErrors        int64                    `json:"client_errors"`
	ServerErrors        int64                    `json:"server_errors"`
	RateLimitedRequests int64                    `json:"rate_limited_requests"`
	AvgResponseTimeMs   float64                  `json:"avg_response_time_ms"`
	TopEndpoints        []map[string]interface{} `json:"top_endpoints"`
	From                time.Time                `json:"from"`
	To                  time.Time                `json:"to"`
}

// Aggregates the gateway's request logs for the admin surface.
type AnalyticsService struct {
	repo *repository.RequestLogRepository
}

func NewAnalyticsService(repo *repository.RequestLogRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*AnalyticsSummary, error) {
	total, err := s.repo.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	successful, err := s.repo.CountByStatusCodeRange(ctx, 200, 299, from, to)
	if err != nil {
		return nil, err
	}

	clientErrors, err := s.repo.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.repo.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	rateLimited, err := s.repo.CountByStatusCodeRange(ctx, 429, 429, from, to)
	if err != nil {
		return nil, err
	}

	avgResponseTime, err := s.repo.GetAverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}

	topEndpoints, err := s.repo.GetTopEndpoints(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	return &AnalyticsSummary{
		TotalRequests:       total,
		SuccessfulRequests:  successful,
		ClientErrors:        clientErrors,
		ServerErrors:        serverErrors,
		RateLimitedRequests: rateLimited,
		AvgResponseTimeMs:   avgResponseTime,
		TopEndpoints:        topEndpoints,
		From:                from,
		To:                  to,
	}, nil
}

// Removes logs older than the retention window.
func (s *AnalyticsService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	before := time.Now().AddDate(0, 0, -retentionDays)
	return s.repo.DeleteOldLogs(ctx, before)
}
