//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"savefood/internal/database"
	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/internal/service"
	"savefood/pkg/errorx"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

type PostgresSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *gorm.DB
	stores    repository.Stores
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("savefood"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.db, err = database.NewConnection(dsn)
	s.Require().NoError(err)
	s.stores = repository.NewStores(s.db)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE audit_logs, buy_requests, food_waste_collectors, food_donations, users CASCADE").Error)
}

func (s *PostgresSuite) user(name string, n int) *model.User {
	u := &model.User{
		Username: name,
		Email:    name + "@example.com",
		Phone:    fmt.Sprintf("9%09d", n),
		FullName: name,
		PinCode:  "682001",
		District: "ernakulam",
		UserType: model.UserTypeCitizen,
		Password: "x",
	}
	s.Require().NoError(s.stores.Users.Create(context.Background(), u))
	return u
}

func (s *PostgresSuite) donation(donor *model.User) *model.FoodDonation {
	d := &model.FoodDonation{
		DonorID:        donor.ID,
		Title:          "Rice",
		FoodType:       model.FoodTypePacked,
		Category:       model.FoodCategoryEdible,
		SafetyAnalysis: "{}",
		IsSafe:         true,
	}
	s.Require().NoError(s.stores.Donations.Create(context.Background(), d))
	return d
}

func (s *PostgresSuite) TestUniqueConstraintsAreTranslated() {
	ctx := context.Background()
	donor := s.user("donor", 1)
	alice := s.user("alice", 2)
	d := s.donation(donor)

	dup := &model.User{Username: "donor", Email: "other@example.com", Phone: "9999999999", FullName: "x", PinCode: "682001", District: "ernakulam", UserType: model.UserTypeCitizen, Password: "x"}
	s.ErrorIs(s.stores.Users.Create(ctx, dup), repository.ErrDuplicate)

	s.Require().NoError(s.stores.BuyRequests.Create(ctx, &model.BuyRequest{RequesterID: alice.ID, DonationID: d.ID, Status: model.BuyRequestPending, DeliveryStatus: model.DeliveryWaiting}))
	err := s.stores.BuyRequests.Create(ctx, &model.BuyRequest{RequesterID: alice.ID, DonationID: d.ID, Status: model.BuyRequestPending, DeliveryStatus: model.DeliveryWaiting})
	s.ErrorIs(err, repository.ErrDuplicate)
}

func (s *PostgresSuite) TestListsAndRelations() {
	ctx := context.Background()
	donor := s.user("donor", 1)
	alice := s.user("alice", 2)
	d := s.donation(donor)
	req := &model.BuyRequest{RequesterID: alice.ID, DonationID: d.ID, Status: model.BuyRequestPending, DeliveryStatus: model.DeliveryWaiting}
	s.Require().NoError(s.stores.BuyRequests.Create(ctx, req))

	received, total, err := s.stores.BuyRequests.ListByDonor(ctx, donor.ID, 1, 20)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(received, 1)
	s.Require().NotNil(received[0].Donation)
	s.Require().NotNil(received[0].Donation.Donor)
	s.Equal("donor", received[0].Donation.Donor.Username)
	s.Equal("alice", received[0].Requester.Username)

	feed, total, err := s.stores.Donations.ListSafe(ctx, 1, 20)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(d.ID, feed[0].ID)
}

func (s *PostgresSuite) TestAdvanceDeliveryStatusIsConditional() {
	ctx := context.Background()
	donor := s.user("donor", 1)
	alice := s.user("alice", 2)
	d := s.donation(donor)
	req := &model.BuyRequest{RequesterID: alice.ID, DonationID: d.ID, Status: model.BuyRequestAccepted, DeliveryStatus: model.DeliveryWaiting}
	s.Require().NoError(s.stores.BuyRequests.Create(ctx, req))

	ok, err := s.stores.BuyRequests.AdvanceDeliveryStatus(ctx, req.ID, model.DeliveryWaiting, model.DeliveryCollected)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.stores.BuyRequests.AdvanceDeliveryStatus(ctx, req.ID, model.DeliveryWaiting, model.DeliveryCollected)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresSuite) TestConcurrentAcceptsSellOnce() {
	ctx := context.Background()
	donor := s.user("donor", 1)
	d := s.donation(donor)
	svc := service.NewBuyRequestService(s.stores)

	const requesters = 6
	ids := make([]string, 0, requesters)
	for i := 0; i < requesters; i++ {
		u := s.user(fmt.Sprintf("req%d", i), 10+i)
		res, err := svc.CreateRequest(ctx, u.ID, service.CreateBuyRequestDTO{DonationID: d.ID.String()})
		s.Require().NoError(err)
		ids = append(ids, res.ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		failures []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.RespondToRequest(ctx, donor.ID, mustParse(id), "accept")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			failures = append(failures, err)
		}(id)
	}
	wg.Wait()

	s.Equal(1, accepted)
	for _, err := range failures {
		s.True(errorx.Is(err, errorx.CodeInvalidOperation), err.Error())
	}

	var counts []struct {
		Status string
		N      int
	}
	s.Require().NoError(s.db.Model(&model.BuyRequest{}).Select("status, count(*) AS n").Where("donation_id = ?", d.ID).Group("status").Scan(&counts).Error)
	byStatus := map[string]int{}
	for _, c := range counts {
		byStatus[c.Status] = c.N
	}
	s.Equal(1, byStatus[model.BuyRequestAccepted])
	s.Equal(requesters-1, byStatus[model.BuyRequestRejected])

	sold, err := s.stores.Donations.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.True(sold.IsSold)

	stats, err := s.stores.Stats.LifecycleStats(ctx, repository.GroupByDay, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.Require().NotEmpty(stats)
	var total, rejected int64
	for _, row := range stats {
		total += row.Requests
		rejected += row.Rejected
	}
	s.EqualValues(requesters, total)
	s.EqualValues(requesters-1, rejected)
}

func mustParse(id string) uuid.UUID {
	return uuid.MustParse(id)
}
