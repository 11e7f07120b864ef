package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"savefood/internal/model"
	"savefood/internal/repository"
)

type statsRepo struct {
	s *Store
}

func (r *statsRepo) LifecycleStats(ctx context.Context, groupBy string, start, end time.Time) ([]repository.LifecycleStatsRow, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	buckets := map[string]*repository.LifecycleStatsRow{}
	for _, id := range r.s.requestIDs {
		req := r.s.requests[id]
		if req.CreatedAt.Before(start) || req.CreatedAt.After(end) {
			continue
		}
		period, err := truncate(req.CreatedAt, groupBy)
		if err != nil {
			return nil, err
		}
		key := period.Format("2006-01-02")
		row, ok := buckets[key]
		if !ok {
			row = &repository.LifecycleStatsRow{Period: key}
			buckets[key] = row
		}

		row.Requests++
		switch req.Status {
		case model.BuyRequestAccepted:
			row.Accepted++
		case model.BuyRequestRejected:
			row.Rejected++
		}
		switch req.DeliveryStatus {
		case model.DeliveryCollected:
			row.Collected++
		case model.DeliveryDelivered:
			row.Delivered++
		}
	}

	rows := make([]repository.LifecycleStatsRow, 0, len(buckets))
	for _, row := range buckets {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows, nil
}

// truncate mirrors DATE_TRUNC in UTC; weeks start on Monday
func truncate(t time.Time, groupBy string) (time.Time, error) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch groupBy {
	case repository.GroupByDay:
		return day, nil
	case repository.GroupByWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case repository.GroupByMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported group by %q", groupBy)
	}
}
