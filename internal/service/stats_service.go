package service

import (
	"context"
	"time"

	"savefood/internal/repository"
	"savefood/pkg/errorx"
)

// --- DTOs ---

type StatsFilter struct {
	GroupBy   string // day, week, month
	StartDate string // RFC3339
	EndDate   string // RFC3339
}

type LifecycleStatsResponse struct {
	GroupBy   string                         `json:"group_by"`
	StartDate string                         `json:"start_date"`
	EndDate   string                         `json:"end_date"`
	Periods   []repository.LifecycleStatsRow `json:"periods"`
	Totals    repository.LifecycleStatsRow   `json:"totals"`
}

// --- Interface ---

type StatsService interface {
	GetLifecycleStats(ctx context.Context, filter StatsFilter) (*LifecycleStatsResponse, error)
}

type statsService struct {
	repo repository.StatsRepository
	now  func() time.Time
}

func NewStatsService(repo repository.StatsRepository) StatsService {
	return &statsService{repo: repo, now: time.Now}
}

// --- Implementation ---

func (s *statsService) GetLifecycleStats(ctx context.Context, filter StatsFilter) (*LifecycleStatsResponse, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case repository.GroupByDay, repository.GroupByWeek, repository.GroupByMonth:
	case "":
		groupBy = repository.GroupByDay
	default:
		return nil, errorx.Newf(errorx.CodeInvalidParam, "group_by must be day, week or month, got %q", filter.GroupBy)
	}

	// Default to the current month
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now
	var err error
	if filter.StartDate != "" {
		if start, err = time.Parse(time.RFC3339, filter.StartDate); err != nil {
			return nil, errorx.New(errorx.CodeInvalidParam, "invalid start_date format, expected RFC3339")
		}
	}
	if filter.EndDate != "" {
		if end, err = time.Parse(time.RFC3339, filter.EndDate); err != nil {
			return nil, errorx.New(errorx.CodeInvalidParam, "invalid end_date format, expected RFC3339")
		}
	}
	if end.Before(start) {
		return nil, errorx.New(errorx.CodeInvalidParam, "end_date must not be before start_date")
	}

	rows, err := s.repo.LifecycleStats(ctx, groupBy, start, end)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeDBError, "failed to load lifecycle statistics")
	}
	if rows == nil {
		rows = []repository.LifecycleStatsRow{}
	}

	totals := repository.LifecycleStatsRow{Period: "total"}
	for _, r := range rows {
		totals.Requests += r.Requests
		totals.Accepted += r.Accepted
		totals.Rejected += r.Rejected
		totals.Collected += r.Collected
		totals.Delivered += r.Delivered
	}

	return &LifecycleStatsResponse{
		GroupBy:   groupBy,
		StartDate: start.Format(timeLayout),
		EndDate:   end.Format(timeLayout),
		Periods:   rows,
		Totals:    totals,
	}, nil
}
