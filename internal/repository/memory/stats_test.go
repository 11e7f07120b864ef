package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"savefood/internal/model"
	"savefood/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleStatsBuckets(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	donor := seedUser(t, s, "donor", "9000000001")
	d := seedDonation(t, s, donor, true)

	// Wednesday 2026-03-04 and Monday 2026-03-09 fall in different weeks.
	wed := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	mon := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	rows := []struct {
		at       time.Time
		status   string
		delivery string
	}{
		{wed, model.BuyRequestAccepted, model.DeliveryDelivered},
		{wed.Add(time.Hour), model.BuyRequestRejected, model.DeliveryWaiting},
		{mon, model.BuyRequestPending, model.DeliveryWaiting},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), model.BuyRequestAccepted, model.DeliveryCollected},
	}
	for i, row := range rows {
		u := seedUser(t, s, fmt.Sprintf("req%d", i), fmt.Sprintf("91000000%02d", i))
		require.NoError(t, s.BuyRequests().Create(ctx, &model.BuyRequest{
			RequesterID:    u.ID,
			DonationID:     d.ID,
			Status:         row.status,
			DeliveryStatus: row.delivery,
			CreatedAt:      row.at,
		}))
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	weekly, err := s.Stats().LifecycleStats(ctx, repository.GroupByWeek, start, end)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, repository.LifecycleStatsRow{Period: "2026-03-02", Requests: 2, Accepted: 1, Rejected: 1, Delivered: 1}, weekly[0])
	assert.Equal(t, repository.LifecycleStatsRow{Period: "2026-03-09", Requests: 1}, weekly[1])

	monthly, err := s.Stats().LifecycleStats(ctx, repository.GroupByMonth, start, end.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2026-03-01", monthly[0].Period)
	assert.EqualValues(t, 3, monthly[0].Requests)
	assert.EqualValues(t, 1, monthly[1].Collected)

	_, err = s.Stats().LifecycleStats(ctx, "year", start, end)
	assert.Error(t, err)
}
