package repository

import (
	"context"
	"fmt"
	"time"

	"savefood/internal/model"

	"gorm.io/gorm"
)

// Supported stats buckets, named after the postgres DATE_TRUNC fields
const (
	GroupByDay   = "day"
	GroupByWeek  = "week"
	GroupByMonth = "month"
)

type LifecycleStatsRow struct {
	Period    string `gorm:"column:period" json:"period"`
	Requests  int64  `gorm:"column:requests" json:"requests"`
	Accepted  int64  `gorm:"column:accepted" json:"accepted"`
	Rejected  int64  `gorm:"column:rejected" json:"rejected"`
	Collected int64  `gorm:"column:collected" json:"collected"`
	Delivered int64  `gorm:"column:delivered" json:"delivered"`
}

// StatsRepository aggregates buy requests by creation period.
type StatsRepository interface {
	LifecycleStats(ctx context.Context, groupBy string, start, end time.Time) ([]LifecycleStatsRow, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) LifecycleStats(ctx context.Context, groupBy string, start, end time.Time) ([]LifecycleStatsRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, br.created_at), 'YYYY-MM-DD') AS period,
			COUNT(*) AS requests,
			COUNT(*) FILTER (WHERE br.status = $4) AS accepted,
			COUNT(*) FILTER (WHERE br.status = $5) AS rejected,
			COUNT(*) FILTER (WHERE br.delivery_status = $6) AS collected,
			COUNT(*) FILTER (WHERE br.delivery_status = $7) AS delivered
		FROM buy_requests br
		WHERE br.created_at >= $2
		  AND br.created_at <= $3
		GROUP BY DATE_TRUNC($1, br.created_at)
		ORDER BY period
	`

	var rows []LifecycleStatsRow
	if err := GetDB(ctx, r.db).Raw(query,
		groupBy, start, end,
		model.BuyRequestAccepted, model.BuyRequestRejected,
		model.DeliveryCollected, model.DeliveryDelivered,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query lifecycle statistics: %w", err)
	}
	return rows, nil
}
