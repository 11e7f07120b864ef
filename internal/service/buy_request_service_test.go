package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"savefood/internal/event"
	"savefood/internal/metrics"
	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/internal/repository/memory"
	"savefood/pkg/errorx"
	"savefood/pkg/otp"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// sequenceOTP hands out the given codes in order, then falls back to crypto/rand.
func sequenceOTP(codes ...string) otp.Generator {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return otp.Generate()
		}
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
}

type BuyRequestServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	stores    repository.Stores
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	svc       BuyRequestService

	donor, alice, bob *model.User
	collectorUser     *model.User
	collector         *model.FoodWasteCollector
	donation          *model.FoodDonation
}

func TestBuyRequestServiceSuite(t *testing.T) {
	suite.Run(t, new(BuyRequestServiceSuite))
}

func (s *BuyRequestServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.stores = s.store.Stores()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = NewBuyRequestService(s.stores,
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithOTPGenerator(sequenceOTP("482913", "775210")),
	)

	s.donor = s.newUser("donor")
	s.alice = s.newUser("alice")
	s.bob = s.newUser("bob")
	s.collectorUser = s.newUser("carl")
	s.collector = s.newCollector(s.collectorUser, true)
	s.donation = s.newDonation(s.donor)
}

var phoneSeq atomic.Int32

func (s *BuyRequestServiceSuite) newUser(name string) *model.User {
	n := phoneSeq.Add(1)
	u := &model.User{
		Username:    name,
		Email:       name + "@example.com",
		Phone:       fmt.Sprintf("9%09d", n),
		FullName:    name,
		FullAddress: name + " street",
		UserType:    model.UserTypeCitizen,
	}
	s.Require().NoError(s.stores.Users.Create(s.ctx, u))
	return u
}

func (s *BuyRequestServiceSuite) newCollector(u *model.User, active bool) *model.FoodWasteCollector {
	c := &model.FoodWasteCollector{UserID: u.ID, VehicleNumber: "KL-07-1234", ServiceArea: "Ernakulam", IsActive: active}
	s.Require().NoError(s.stores.Collectors.Create(s.ctx, c))
	return c
}

func (s *BuyRequestServiceSuite) newDonation(donor *model.User) *model.FoodDonation {
	d := &model.FoodDonation{
		DonorID:        donor.ID,
		Title:          "Biryani for 10",
		FoodType:       model.FoodTypeHomeCooked,
		Category:       model.FoodCategoryEdible,
		Address:        "donor street",
		SafetyAnalysis: "{}",
		IsSafe:         true,
	}
	s.Require().NoError(s.stores.Donations.Create(s.ctx, d))
	return d
}

func (s *BuyRequestServiceSuite) create(requester *model.User, donation *model.FoodDonation) BuyRequestResponse {
	res, err := s.svc.CreateRequest(s.ctx, requester.ID, CreateBuyRequestDTO{DonationID: donation.ID.String(), Message: "please"})
	s.Require().NoError(err)
	return res
}

func (s *BuyRequestServiceSuite) request(id string) *model.BuyRequest {
	req, err := s.stores.BuyRequests.FindByID(s.ctx, uuid.MustParse(id))
	s.Require().NoError(err)
	return req
}

func (s *BuyRequestServiceSuite) assign(requestID string) {
	_, err := s.svc.AssignCollector(s.ctx, uuid.Nil, uuid.MustParse(requestID), &s.collector.ID)
	s.Require().NoError(err)
}

func (s *BuyRequestServiceSuite) requireCode(err error, code int, msg string) {
	s.Require().Error(err)
	s.Equal(code, errorx.GetCode(err), err.Error())
	if msg != "" {
		s.Equal(msg, errorx.Message(err))
	}
}

// --- creation ---

func (s *BuyRequestServiceSuite) TestCreateRequest() {
	res := s.create(s.alice, s.donation)

	s.Equal(model.BuyRequestPending, res.Status)
	s.Equal(model.DeliveryWaiting, res.DeliveryStatus)
	s.Equal("please", res.Message)
	s.Empty(res.SenderOTP)
	s.Empty(res.ReceiverOTP)
	s.Equal(s.donation.Title, res.DonationTitle)

	stored := s.request(res.ID)
	s.Empty(stored.SenderOTP)
	s.Empty(stored.ReceiverOTP)
	s.Equal([]string{event.TypeCreated}, s.publisher.types())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RequestsCreated))
}

func (s *BuyRequestServiceSuite) TestCreateRequestPreconditions() {
	_, err := s.svc.CreateRequest(s.ctx, s.alice.ID, CreateBuyRequestDTO{DonationID: uuid.NewString()})
	s.requireCode(err, errorx.CodeNotFound, "donation not found")

	_, err = s.svc.CreateRequest(s.ctx, s.donor.ID, CreateBuyRequestDTO{DonationID: s.donation.ID.String()})
	s.requireCode(err, errorx.CodeInvalidOperation, "cannot request own donation")

	s.create(s.alice, s.donation)
	_, err = s.svc.CreateRequest(s.ctx, s.alice.ID, CreateBuyRequestDTO{DonationID: s.donation.ID.String()})
	s.requireCode(err, errorx.CodeInvalidOperation, "duplicate request")

	s.Require().NoError(s.stores.Donations.MarkSold(s.ctx, s.donation.ID))
	_, err = s.svc.CreateRequest(s.ctx, s.bob.ID, CreateBuyRequestDTO{DonationID: s.donation.ID.String()})
	s.requireCode(err, errorx.CodeInvalidOperation, "already sold")

	_, err = s.svc.CreateRequest(s.ctx, s.bob.ID, CreateBuyRequestDTO{DonationID: "not-a-uuid"})
	s.requireCode(err, errorx.CodeInvalidParam, "")
}

func (s *BuyRequestServiceSuite) TestOwnDonationIsCheckedBeforeSold() {
	s.Require().NoError(s.stores.Donations.MarkSold(s.ctx, s.donation.ID))
	_, err := s.svc.CreateRequest(s.ctx, s.donor.ID, CreateBuyRequestDTO{DonationID: s.donation.ID.String()})
	s.requireCode(err, errorx.CodeInvalidOperation, "cannot request own donation")
}

// --- respond ---

func (s *BuyRequestServiceSuite) TestAcceptCascadesAndMarksSold() {
	a := s.create(s.alice, s.donation)
	b := s.create(s.bob, s.donation)
	third := s.create(s.collectorUser, s.donation)
	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(third.ID), model.ActionReject)
	s.Require().NoError(err)

	res, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	s.Equal(model.BuyRequestAccepted, res.Status)
	s.Equal("482913", res.SenderOTP, "donor sees the pickup code")
	s.Empty(res.ReceiverOTP, "donor never sees the delivery code")

	accepted := s.request(a.ID)
	s.True(otp.Valid(accepted.SenderOTP))
	s.True(otp.Valid(accepted.ReceiverOTP))
	s.Equal(model.DeliveryWaiting, accepted.DeliveryStatus)

	s.Equal(model.BuyRequestRejected, s.request(b.ID).Status)
	s.Equal(model.BuyRequestRejected, s.request(third.ID).Status)

	donation, err := s.stores.Donations.FindByID(s.ctx, s.donation.ID)
	s.Require().NoError(err)
	s.True(donation.IsSold)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.AutoRejected), "already rejected requests are not reprocessed")

	logs, _, err := s.stores.Audit.List(s.ctx, 1, 50)
	s.Require().NoError(err)
	actions := map[string]int{}
	for _, l := range logs {
		actions[l.Action]++
	}
	s.Equal(1, actions[model.ActionAcceptBuyRequest])
	s.Equal(1, actions[model.ActionAutoRejectBuyRequest])
	s.Equal(3, actions[model.ActionCreateBuyRequest])
}

func (s *BuyRequestServiceSuite) TestRejectTouchesNothingElse() {
	a := s.create(s.alice, s.donation)
	b := s.create(s.bob, s.donation)

	res, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionReject)
	s.Require().NoError(err)
	s.Equal(model.BuyRequestRejected, res.Status)
	s.Empty(s.request(a.ID).SenderOTP)

	s.Equal(model.BuyRequestPending, s.request(b.ID).Status)
	donation, err := s.stores.Donations.FindByID(s.ctx, s.donation.ID)
	s.Require().NoError(err)
	s.False(donation.IsSold)
}

func (s *BuyRequestServiceSuite) TestRespondGuards() {
	a := s.create(s.alice, s.donation)
	id := uuid.MustParse(a.ID)

	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.New(), model.ActionAccept)
	s.requireCode(err, errorx.CodeNotFound, "request not found")

	_, err = s.svc.RespondToRequest(s.ctx, s.bob.ID, id, model.ActionAccept)
	s.requireCode(err, errorx.CodeForbidden, "only the donation owner can respond")

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, id, "Accept")
	s.requireCode(err, errorx.CodeInvalidOperation, "action must be 'accept' or 'reject'")

	s.Equal(model.BuyRequestPending, s.request(a.ID).Status)
}

func (s *BuyRequestServiceSuite) TestRespondToTerminalRequest() {
	a := s.create(s.alice, s.donation)
	b := s.create(s.bob, s.donation)

	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	before := s.request(a.ID)

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.requireCode(err, errorx.CodeInvalidOperation, "request is already accepted")

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionReject)
	s.requireCode(err, errorx.CodeInvalidOperation, "request is already accepted")

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(b.ID), model.ActionAccept)
	s.requireCode(err, errorx.CodeInvalidOperation, "request is already rejected")

	after := s.request(a.ID)
	s.Equal(before.SenderOTP, after.SenderOTP, "OTPs are issued once")
	s.Equal(before.ReceiverOTP, after.ReceiverOTP)
}

func (s *BuyRequestServiceSuite) TestOTPFailureRollsBack() {
	svc := NewBuyRequestService(s.stores, WithOTPGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	a := s.create(s.alice, s.donation)
	b := s.create(s.bob, s.donation)

	_, err := svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().Error(err)

	s.Equal(model.BuyRequestPending, s.request(a.ID).Status)
	s.Equal(model.BuyRequestPending, s.request(b.ID).Status)
	donation, err := s.stores.Donations.FindByID(s.ctx, s.donation.ID)
	s.Require().NoError(err)
	s.False(donation.IsSold)
}

// --- OTP handoff ---

func (s *BuyRequestServiceSuite) TestEndToEndScenario() {
	u2 := s.create(s.alice, s.donation)
	u3 := s.create(s.bob, s.donation)

	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(u2.ID), model.ActionAccept)
	s.Require().NoError(err)
	s.Equal(model.BuyRequestRejected, s.request(u3.ID).Status)

	stored := s.request(u2.ID)
	s.Equal("482913", stored.SenderOTP)
	s.Equal("775210", stored.ReceiverOTP)

	s.assign(u2.ID)
	id := uuid.MustParse(u2.ID)

	res, err := s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, " 482913 ")
	s.Require().NoError(err)
	s.Equal(MsgCollected, res.Message)
	s.Equal(model.DeliveryCollected, res.DeliveryStatus)
	s.Empty(res.Request.SenderOTP)
	s.Empty(res.Request.ReceiverOTP)

	res, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "775210")
	s.Require().NoError(err)
	s.Equal(MsgDelivered, res.Message)
	s.Equal(model.DeliveryDelivered, s.request(u2.ID).DeliveryStatus)

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913")
	s.requireCode(err, errorx.CodeInvalidOperation, "already delivered")

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "000000")
	s.requireCode(err, errorx.CodeInvalidOperation, "already delivered")

	s.Equal([]string{
		event.TypeCreated, event.TypeCreated,
		event.TypeAccepted, event.TypeRejected,
		event.TypeCollected, event.TypeDelivered,
	}, s.publisher.types())
}

func (s *BuyRequestServiceSuite) TestVerifyIsSequential() {
	a := s.create(s.alice, s.donation)
	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	s.assign(a.ID)
	id := uuid.MustParse(a.ID)

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "775210")
	s.requireCode(err, errorx.CodeInvalidOperation, "invalid OTP: expected sender code")
	s.Equal(model.DeliveryWaiting, s.request(a.ID).DeliveryStatus)

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913")
	s.Require().NoError(err)

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913")
	s.requireCode(err, errorx.CodeInvalidOperation, "invalid OTP: expected receiver code")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.OTPVerifications.WithLabelValues("pickup", "invalid")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OTPVerifications.WithLabelValues("pickup", "ok")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OTPVerifications.WithLabelValues("delivery", "invalid")))
}

func (s *BuyRequestServiceSuite) TestVerifyGuards() {
	a := s.create(s.alice, s.donation)
	id := uuid.MustParse(a.ID)

	_, err := s.svc.VerifyOTP(s.ctx, s.bob.ID, id, "482913")
	s.requireCode(err, errorx.CodeForbidden, "not a collector")

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913")
	s.requireCode(err, errorx.CodeNotFound, "request not found or not assigned to you")

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, uuid.New(), "482913")
	s.requireCode(err, errorx.CodeNotFound, "request not found or not assigned to you")

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, id, model.ActionAccept)
	s.Require().NoError(err)
	s.assign(a.ID)

	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "   ")
	s.requireCode(err, errorx.CodeInvalidOperation, "OTP is required")

	other := s.newCollector(s.bob, true)
	_, err = s.svc.VerifyOTP(s.ctx, s.bob.ID, id, "482913")
	s.requireCode(err, errorx.CodeNotFound, "request not found or not assigned to you")
	s.NotEqual(other.ID, s.collector.ID)

	s.Require().NoError(s.stores.Collectors.SetActive(s.ctx, s.collector.ID, false))
	_, err = s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913")
	s.requireCode(err, errorx.CodeForbidden, "collector account is deactivated")
}

func (s *BuyRequestServiceSuite) TestAssignCollector() {
	a := s.create(s.alice, s.donation)
	id := uuid.MustParse(a.ID)

	_, err := s.svc.AssignCollector(s.ctx, uuid.Nil, uuid.New(), &s.collector.ID)
	s.requireCode(err, errorx.CodeNotFound, "request not found")

	missing := uuid.New()
	_, err = s.svc.AssignCollector(s.ctx, uuid.Nil, id, &missing)
	s.requireCode(err, errorx.CodeNotFound, "collector not found")

	_, err = s.svc.AssignCollector(s.ctx, uuid.Nil, id, &s.collector.ID)
	s.requireCode(err, errorx.CodeInvalidOperation, "only accepted requests can be assigned a collector")

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, id, model.ActionAccept)
	s.Require().NoError(err)

	idle := s.newCollector(s.bob, false)
	_, err = s.svc.AssignCollector(s.ctx, uuid.Nil, id, &idle.ID)
	s.requireCode(err, errorx.CodeInvalidOperation, "collector account is deactivated")

	res, err := s.svc.AssignCollector(s.ctx, uuid.Nil, id, &s.collector.ID)
	s.Require().NoError(err)
	s.Require().NotNil(res.AssignedCollectorID)
	s.Equal(s.collector.ID.String(), *res.AssignedCollectorID)
	s.Empty(res.SenderOTP)
	s.Empty(res.ReceiverOTP)

	res, err = s.svc.AssignCollector(s.ctx, uuid.Nil, id, nil)
	s.Require().NoError(err)
	s.Nil(res.AssignedCollectorID)
}

// --- views ---

func (s *BuyRequestServiceSuite) TestViewsScopeOTPs() {
	a := s.create(s.alice, s.donation)
	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	s.assign(a.ID)

	sent, total, err := s.svc.ListSent(s.ctx, s.alice.ID, 1, 20)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(sent, 1)
	s.Equal("775210", sent[0].ReceiverOTP)
	s.Empty(sent[0].SenderOTP)

	received, total, err := s.svc.ListReceived(s.ctx, s.donor.ID, 1, 20)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(received, 1)
	s.Equal("482913", received[0].SenderOTP)
	s.Empty(received[0].ReceiverOTP)
	s.Equal("alice", received[0].RequesterName)

	jobs, err := s.svc.ListCollectorAssignments(s.ctx, s.collectorUser.ID)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Empty(jobs[0].SenderOTP)
	s.Empty(jobs[0].ReceiverOTP)
	s.Equal("donor street", jobs[0].DonationAddress)
	s.Equal("alice street", jobs[0].RequesterAddress)

	_, err = s.svc.ListCollectorAssignments(s.ctx, s.bob.ID)
	s.requireCode(err, errorx.CodeForbidden, "not a collector")
}

func (s *BuyRequestServiceSuite) TestCheckRequest() {
	res, err := s.svc.CheckRequest(s.ctx, s.alice.ID, s.donation.ID)
	s.Require().NoError(err)
	s.False(res.HasRequest)

	a := s.create(s.alice, s.donation)
	res, err = s.svc.CheckRequest(s.ctx, s.alice.ID, s.donation.ID)
	s.Require().NoError(err)
	s.True(res.HasRequest)
	s.Equal(a.ID, res.RequestID)
	s.Equal(model.BuyRequestPending, res.Status)
	s.Empty(res.ReceiverOTP)

	_, err = s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	res, err = s.svc.CheckRequest(s.ctx, s.alice.ID, s.donation.ID)
	s.Require().NoError(err)
	s.Equal("775210", res.ReceiverOTP)
}

func (s *BuyRequestServiceSuite) TestPublishFailureDoesNotFailOperation() {
	s.publisher.err = errors.New("broker down")
	res, err := s.svc.CreateRequest(s.ctx, s.alice.ID, CreateBuyRequestDTO{DonationID: s.donation.ID.String()})
	s.Require().NoError(err)
	s.Equal(model.BuyRequestPending, res.Status)
}

// --- concurrency ---

func (s *BuyRequestServiceSuite) TestConcurrentAcceptsSerializePerDonation() {
	svc := NewBuyRequestService(s.stores)
	const n = 8
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		u := s.newUser(fmt.Sprintf("racer%d", i))
		ids = append(ids, uuid.MustParse(s.create(u, s.donation).ID))
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := svc.RespondToRequest(s.ctx, s.donor.ID, id, model.ActionAccept); err == nil {
				successes.Add(1)
			} else {
				s.True(errorx.Is(err, errorx.CodeInvalidOperation), err.Error())
			}
		}(id)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())

	accepted := 0
	for _, id := range ids {
		req := s.request(id.String())
		switch req.Status {
		case model.BuyRequestAccepted:
			accepted++
			s.True(otp.Valid(req.SenderOTP))
		case model.BuyRequestRejected:
			s.Empty(req.SenderOTP)
		default:
			s.Failf("unexpected status", "request %s is %s", id, req.Status)
		}
	}
	s.Equal(1, accepted)
}

func (s *BuyRequestServiceSuite) TestConcurrentVerifyAdvancesOnce() {
	a := s.create(s.alice, s.donation)
	_, err := s.svc.RespondToRequest(s.ctx, s.donor.ID, uuid.MustParse(a.ID), model.ActionAccept)
	s.Require().NoError(err)
	s.assign(a.ID)
	id := uuid.MustParse(a.ID)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.VerifyOTP(s.ctx, s.collectorUser.ID, id, "482913"); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(model.DeliveryCollected, s.request(a.ID).DeliveryStatus)
}
