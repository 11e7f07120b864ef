package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"savefood/internal/cache"
	"savefood/internal/event"
	"savefood/internal/metrics"
	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/pkg/errorx"
	"savefood/pkg/otp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateBuyRequestDTO struct {
	DonationID string `json:"donation_id" binding:"required,uuid"`
	Message    string `json:"message" binding:"max=1000"`
}

type RespondBuyRequestDTO struct {
	Action string `json:"action"`
}

type VerifyOTPDTO struct {
	OTP string `json:"otp"`
}

type AssignCollectorDTO struct {
	CollectorID *string `json:"collector_id" binding:"omitempty,uuid"`
}

type BuyRequestResponse struct {
	ID                  string  `json:"id"`
	DonationID          string  `json:"donation_id"`
	DonationTitle       string  `json:"donation_title"`
	DonationAddress     string  `json:"donation_address"`
	DonorID             string  `json:"donor_id"`
	DonorName           string  `json:"donor_name"`
	DonorPhone          string  `json:"donor_phone"`
	RequesterID         string  `json:"requester_id"`
	RequesterName       string  `json:"requester_name"`
	RequesterPhone      string  `json:"requester_phone"`
	RequesterAddress    string  `json:"requester_address"`
	Status              string  `json:"status"`
	Message             string  `json:"message"`
	DeliveryStatus      string  `json:"delivery_status"`
	SenderOTP           string  `json:"sender_otp,omitempty"`
	ReceiverOTP         string  `json:"receiver_otp,omitempty"`
	AssignedCollectorID *string `json:"assigned_collector_id"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

type VerifyOTPResponse struct {
	Message        string             `json:"message"`
	DeliveryStatus string             `json:"delivery_status"`
	Request        BuyRequestResponse `json:"request"`
}

type CheckRequestResponse struct {
	HasRequest     bool   `json:"has_request"`
	RequestID      string `json:"request_id,omitempty"`
	Status         string `json:"status,omitempty"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
	ReceiverOTP    string `json:"receiver_otp,omitempty"`
}

// Verification outcomes
const (
	MsgCollected = "collected from donor"
	MsgDelivered = "delivered to requester"
)

var (
	ErrDonationNotFound    = errorx.New(errorx.CodeNotFound, "donation not found")
	ErrOwnDonation         = errorx.New(errorx.CodeInvalidOperation, "cannot request own donation")
	ErrAlreadySold         = errorx.New(errorx.CodeInvalidOperation, "already sold")
	ErrDuplicateRequest    = errorx.New(errorx.CodeInvalidOperation, "duplicate request")
	ErrRequestNotFound     = errorx.New(errorx.CodeNotFound, "request not found")
	ErrNotDonationOwner    = errorx.New(errorx.CodeForbidden, "only the donation owner can respond")
	ErrInvalidAction       = errorx.New(errorx.CodeInvalidOperation, "action must be 'accept' or 'reject'")
	ErrNotCollector        = errorx.New(errorx.CodeForbidden, "not a collector")
	ErrCollectorInactive   = errorx.New(errorx.CodeForbidden, "collector account is deactivated")
	ErrCollectorNotFound   = errorx.New(errorx.CodeNotFound, "collector not found")
	ErrNotAssigned         = errorx.New(errorx.CodeNotFound, "request not found or not assigned to you")
	ErrOTPRequired         = errorx.New(errorx.CodeInvalidOperation, "OTP is required")
	ErrNotAccepted         = errorx.New(errorx.CodeInvalidOperation, "request is not accepted")
	ErrAlreadyDelivered    = errorx.New(errorx.CodeInvalidOperation, "already delivered")
	ErrExpectedSenderOTP   = errorx.New(errorx.CodeInvalidOperation, "invalid OTP: expected sender code")
	ErrExpectedReceiverOTP = errorx.New(errorx.CodeInvalidOperation, "invalid OTP: expected receiver code")
	ErrDeliveryChanged     = errorx.New(errorx.CodeInvalidOperation, "delivery status changed, please retry")
)

// --- Interface ---

// BuyRequestService owns the buy request lifecycle: creation, the donor's
// accept/reject decision and the collector's two-step OTP handoff.
type BuyRequestService interface {
	CreateRequest(ctx context.Context, requesterID uuid.UUID, req CreateBuyRequestDTO) (BuyRequestResponse, error)
	RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, action string) (BuyRequestResponse, error)
	VerifyOTP(ctx context.Context, collectorUserID, requestID uuid.UUID, code string) (VerifyOTPResponse, error)
	AssignCollector(ctx context.Context, adminID, requestID uuid.UUID, collectorID *uuid.UUID) (BuyRequestResponse, error)

	ListSent(ctx context.Context, userID uuid.UUID, page, limit int) ([]BuyRequestResponse, int64, error)
	ListReceived(ctx context.Context, userID uuid.UUID, page, limit int) ([]BuyRequestResponse, int64, error)
	CheckRequest(ctx context.Context, userID, donationID uuid.UUID) (CheckRequestResponse, error)
	ListCollectorAssignments(ctx context.Context, collectorUserID uuid.UUID) ([]BuyRequestResponse, error)
}

type buyRequestService struct {
	stores  repository.Stores
	events  event.Publisher
	feed    cache.DonationFeed
	metrics *metrics.Metrics
	genOTP  otp.Generator
	now     func() time.Time
}

type BuyRequestOption func(*buyRequestService)

func WithPublisher(p event.Publisher) BuyRequestOption {
	return func(s *buyRequestService) { s.events = p }
}

func WithFeedCache(f cache.DonationFeed) BuyRequestOption {
	return func(s *buyRequestService) { s.feed = f }
}

func WithMetrics(m *metrics.Metrics) BuyRequestOption {
	return func(s *buyRequestService) { s.metrics = m }
}

// WithOTPGenerator replaces the crypto/rand generator, mostly for tests.
func WithOTPGenerator(g otp.Generator) BuyRequestOption {
	return func(s *buyRequestService) { s.genOTP = g }
}

func NewBuyRequestService(stores repository.Stores, opts ...BuyRequestOption) BuyRequestService {
	s := &buyRequestService{
		stores: stores,
		events: event.NoopPublisher{},
		feed:   cache.NoopFeed{},
		genOTP: otp.Generate,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Lifecycle ---

func (s *buyRequestService) CreateRequest(ctx context.Context, requesterID uuid.UUID, req CreateBuyRequestDTO) (BuyRequestResponse, error) {
	donationID, err := uuid.Parse(req.DonationID)
	if err != nil {
		return BuyRequestResponse{}, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid donation_id")
	}

	var created model.BuyRequest
	err = s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		// the donation lock serializes creation against a concurrent accept
		donation, err := s.stores.Donations.FindByIDForUpdate(txCtx, donationID)
		if err != nil {
			return notFoundOr(err, ErrDonationNotFound, "failed to load donation")
		}
		if donation.DonorID == requesterID {
			return ErrOwnDonation
		}
		if donation.IsSold {
			return ErrAlreadySold
		}

		_, err = s.stores.BuyRequests.FindByRequesterAndDonation(txCtx, requesterID, donationID)
		switch {
		case err == nil:
			return ErrDuplicateRequest
		case !errors.Is(err, repository.ErrNotFound):
			return errorx.Wrap(err, errorx.CodeDBError, "failed to check existing requests")
		}

		created = model.BuyRequest{
			RequesterID:    requesterID,
			DonationID:     donationID,
			Status:         model.BuyRequestPending,
			Message:        strings.TrimSpace(req.Message),
			DeliveryStatus: model.DeliveryWaiting,
		}
		if err := s.stores.BuyRequests.Create(txCtx, &created); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateRequest
			}
			return errorx.Wrap(err, errorx.CodeDBError, "failed to create buy request")
		}

		return writeAudit(txCtx, s.stores.Audit, requesterID, model.ActionCreateBuyRequest,
			created.ID.String(), donation.Title, map[string]interface{}{
				"donation_id": donationID.String(),
			})
	})
	if err != nil {
		return BuyRequestResponse{}, err
	}

	zap.L().Info("buy request created",
		zap.String("request_id", created.ID.String()),
		zap.String("donation_id", donationID.String()),
		zap.String("requester_id", requesterID.String()))
	s.metrics.IncCreated()
	s.publish(ctx, s.newEvent(event.TypeCreated, created, requesterID))

	return s.reload(ctx, created.ID, viewerRequester)
}

func (s *buyRequestService) RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, action string) (BuyRequestResponse, error) {
	var (
		accepted model.BuyRequest
		rejected []model.BuyRequest
	)

	err := s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		donationID, err := s.stores.BuyRequests.FindDonationID(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, ErrRequestNotFound, "failed to load buy request")
		}

		// Lock order is always donation, then request.
		donation, err := s.stores.Donations.FindByIDForUpdate(txCtx, donationID)
		if err != nil {
			return notFoundOr(err, ErrDonationNotFound, "failed to load donation")
		}
		req, err := s.stores.BuyRequests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, ErrRequestNotFound, "failed to load buy request")
		}

		if donation.DonorID != responderID {
			return ErrNotDonationOwner
		}
		if action != model.ActionAccept && action != model.ActionReject {
			return ErrInvalidAction
		}
		if req.Status != model.BuyRequestPending {
			return errorx.Newf(errorx.CodeInvalidOperation, "request is already %s", req.Status)
		}

		if action == model.ActionReject {
			req.Status = model.BuyRequestRejected
			if err := s.stores.BuyRequests.Update(txCtx, req); err != nil {
				return errorx.Wrap(err, errorx.CodeDBError, "failed to update buy request")
			}
			rejected = append(rejected, *req)
			return writeAudit(txCtx, s.stores.Audit, responderID, model.ActionRejectBuyRequest,
				req.ID.String(), donation.Title, map[string]interface{}{
					"donation_id":  donation.ID.String(),
					"requester_id": req.RequesterID.String(),
				})
		}

		if donation.IsSold {
			return ErrAlreadySold
		}

		senderOTP, err := s.genOTP()
		if err != nil {
			return errorx.Wrap(err, errorx.CodeServerBusy, "failed to generate OTP")
		}
		receiverOTP, err := s.genOTP()
		if err != nil {
			return errorx.Wrap(err, errorx.CodeServerBusy, "failed to generate OTP")
		}

		req.Status = model.BuyRequestAccepted
		req.DeliveryStatus = model.DeliveryWaiting
		req.SenderOTP = senderOTP
		req.ReceiverOTP = receiverOTP
		if err := s.stores.BuyRequests.Update(txCtx, req); err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to update buy request")
		}
		accepted = *req

		siblings, err := s.stores.BuyRequests.ListPendingByDonation(txCtx, donation.ID)
		if err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to load pending requests")
		}
		if _, err := s.stores.BuyRequests.RejectPendingSiblings(txCtx, donation.ID, req.ID); err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to reject competing requests")
		}
		if err := s.stores.Donations.MarkSold(txCtx, donation.ID); err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to mark donation sold")
		}

		if err := writeAudit(txCtx, s.stores.Audit, responderID, model.ActionAcceptBuyRequest,
			req.ID.String(), donation.Title, map[string]interface{}{
				"donation_id":  donation.ID.String(),
				"requester_id": req.RequesterID.String(),
			}); err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.ID == req.ID {
				continue
			}
			sibling.Status = model.BuyRequestRejected
			rejected = append(rejected, sibling)
			if err := writeAudit(txCtx, s.stores.Audit, responderID, model.ActionAutoRejectBuyRequest,
				sibling.ID.String(), donation.Title, map[string]interface{}{
					"donation_id":      donation.ID.String(),
					"accepted_request": req.ID.String(),
				}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BuyRequestResponse{}, err
	}

	s.metrics.IncResponse(action)
	events := make([]event.Event, 0, len(rejected)+1)
	if action == model.ActionAccept {
		s.metrics.AddAutoRejected(int64(len(rejected)))
		s.invalidateFeed(ctx)
		events = append(events, s.newEvent(event.TypeAccepted, accepted, responderID))
		zap.L().Info("buy request accepted",
			zap.String("request_id", requestID.String()),
			zap.String("donation_id", accepted.DonationID.String()),
			zap.Int("auto_rejected", len(rejected)))
	} else {
		zap.L().Info("buy request rejected", zap.String("request_id", requestID.String()))
	}
	for _, r := range rejected {
		events = append(events, s.newEvent(event.TypeRejected, r, responderID))
	}
	s.publish(ctx, events...)

	return s.reload(ctx, requestID, viewerDonor)
}

func (s *buyRequestService) VerifyOTP(ctx context.Context, collectorUserID, requestID uuid.UUID, code string) (VerifyOTPResponse, error) {
	var (
		stage    string
		verified bool
		advanced model.BuyRequest
		message  string
	)

	err := s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		collector, err := s.resolveCollector(txCtx, collectorUserID)
		if err != nil {
			return err
		}

		req, err := s.stores.BuyRequests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, ErrNotAssigned, "failed to load buy request")
		}
		if !req.IsAssignedTo(collector.ID) {
			return ErrNotAssigned
		}

		code = strings.TrimSpace(code)
		if code == "" {
			return ErrOTPRequired
		}
		if req.Status != model.BuyRequestAccepted {
			return ErrNotAccepted
		}

		var (
			next   string
			action string
		)
		switch req.DeliveryStatus {
		case model.DeliveryDelivered:
			return ErrAlreadyDelivered
		case model.DeliveryWaiting:
			stage = "pickup"
			if !otp.Equal(req.SenderOTP, code) {
				return ErrExpectedSenderOTP
			}
			next, action, message = model.DeliveryCollected, model.ActionVerifyPickupOTP, MsgCollected
		case model.DeliveryCollected:
			stage = "delivery"
			if !otp.Equal(req.ReceiverOTP, code) {
				return ErrExpectedReceiverOTP
			}
			next, action, message = model.DeliveryDelivered, model.ActionVerifyDeliveryOTP, MsgDelivered
		default:
			return errorx.Newf(errorx.CodeInvalidOperation, "unknown delivery status %q", req.DeliveryStatus)
		}

		ok, err := s.stores.BuyRequests.AdvanceDeliveryStatus(txCtx, req.ID, req.DeliveryStatus, next)
		if err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to update delivery status")
		}
		if !ok {
			return ErrDeliveryChanged
		}
		verified = true

		advanced = *req
		advanced.DeliveryStatus = next
		return writeAudit(txCtx, s.stores.Audit, collectorUserID, action, req.ID.String(), "", map[string]interface{}{
			"collector_id":    collector.ID.String(),
			"delivery_status": next,
		})
	})
	if stage != "" {
		s.metrics.IncOTP(stage, verified && err == nil)
	}
	if err != nil {
		return VerifyOTPResponse{}, err
	}

	eventType := event.TypeCollected
	if advanced.DeliveryStatus == model.DeliveryDelivered {
		eventType = event.TypeDelivered
	}
	zap.L().Info("delivery status advanced",
		zap.String("request_id", requestID.String()),
		zap.String("delivery_status", advanced.DeliveryStatus))
	s.publish(ctx, s.newEvent(eventType, advanced, collectorUserID))

	resp, err := s.reload(ctx, requestID, viewerCollector)
	if err != nil {
		return VerifyOTPResponse{}, err
	}
	return VerifyOTPResponse{Message: message, DeliveryStatus: advanced.DeliveryStatus, Request: resp}, nil
}

// AssignCollector sets or clears the collector of an accepted request.
func (s *buyRequestService) AssignCollector(ctx context.Context, adminID, requestID uuid.UUID, collectorID *uuid.UUID) (BuyRequestResponse, error) {
	err := s.stores.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.stores.BuyRequests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, ErrRequestNotFound, "failed to load buy request")
		}

		details := map[string]interface{}{"previous_collector_id": nil, "collector_id": nil}
		if req.AssignedCollectorID != nil {
			details["previous_collector_id"] = req.AssignedCollectorID.String()
		}

		if collectorID != nil {
			collector, err := s.stores.Collectors.FindByID(txCtx, *collectorID)
			if err != nil {
				return notFoundOr(err, ErrCollectorNotFound, "failed to load collector")
			}
			if req.Status != model.BuyRequestAccepted {
				return errorx.New(errorx.CodeInvalidOperation, "only accepted requests can be assigned a collector")
			}
			if req.DeliveryStatus == model.DeliveryDelivered {
				return ErrAlreadyDelivered
			}
			if !collector.IsActive {
				return errorx.New(errorx.CodeInvalidOperation, "collector account is deactivated")
			}
			details["collector_id"] = collector.ID.String()
		}

		if err := s.stores.BuyRequests.SetCollector(txCtx, req.ID, collectorID); err != nil {
			return errorx.Wrap(err, errorx.CodeDBError, "failed to assign collector")
		}
		return writeAudit(txCtx, s.stores.Audit, adminID, model.ActionAssignCollector, req.ID.String(), "", details)
	})
	if err != nil {
		return BuyRequestResponse{}, err
	}
	return s.reload(ctx, requestID, viewerNone)
}

// --- Query views ---

func (s *buyRequestService) ListSent(ctx context.Context, userID uuid.UUID, page, limit int) ([]BuyRequestResponse, int64, error) {
	reqs, total, err := s.stores.BuyRequests.ListByRequester(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, errorx.Wrap(err, errorx.CodeDBError, "failed to fetch sent requests")
	}
	return toBuyRequestResponses(reqs, viewerRequester), total, nil
}

func (s *buyRequestService) ListReceived(ctx context.Context, userID uuid.UUID, page, limit int) ([]BuyRequestResponse, int64, error) {
	reqs, total, err := s.stores.BuyRequests.ListByDonor(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, errorx.Wrap(err, errorx.CodeDBError, "failed to fetch received requests")
	}
	return toBuyRequestResponses(reqs, viewerDonor), total, nil
}

func (s *buyRequestService) CheckRequest(ctx context.Context, userID, donationID uuid.UUID) (CheckRequestResponse, error) {
	req, err := s.stores.BuyRequests.FindByRequesterAndDonation(ctx, userID, donationID)
	if errors.Is(err, repository.ErrNotFound) {
		return CheckRequestResponse{HasRequest: false}, nil
	}
	if err != nil {
		return CheckRequestResponse{}, errorx.Wrap(err, errorx.CodeDBError, "failed to check request")
	}
	return CheckRequestResponse{
		HasRequest:     true,
		RequestID:      req.ID.String(),
		Status:         req.Status,
		DeliveryStatus: req.DeliveryStatus,
		ReceiverOTP:    req.ReceiverOTP,
	}, nil
}

func (s *buyRequestService) ListCollectorAssignments(ctx context.Context, collectorUserID uuid.UUID) ([]BuyRequestResponse, error) {
	collector, err := s.resolveCollector(ctx, collectorUserID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.stores.BuyRequests.ListByCollector(ctx, collector.ID, model.BuyRequestAccepted)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeDBError, "failed to fetch assignments")
	}
	return toBuyRequestResponses(reqs, viewerCollector), nil
}

// --- Helpers ---

func (s *buyRequestService) resolveCollector(ctx context.Context, userID uuid.UUID) (*model.FoodWasteCollector, error) {
	collector, err := s.stores.Collectors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrNotCollector, "failed to load collector")
	}
	if !collector.IsActive {
		return nil, ErrCollectorInactive
	}
	return collector, nil
}

func (s *buyRequestService) reload(ctx context.Context, id uuid.UUID, v viewer) (BuyRequestResponse, error) {
	req, err := s.stores.BuyRequests.FindByID(ctx, id)
	if err != nil {
		return BuyRequestResponse{}, notFoundOr(err, ErrRequestNotFound, "failed to reload buy request")
	}
	return toBuyRequestResponse(*req, v), nil
}

func (s *buyRequestService) newEvent(typ string, req model.BuyRequest, actor uuid.UUID) event.Event {
	return event.Event{
		Type:           typ,
		RequestID:      req.ID,
		DonationID:     req.DonationID,
		RequesterID:    req.RequesterID,
		ActorID:        actor,
		Status:         req.Status,
		DeliveryStatus: req.DeliveryStatus,
		CollectorID:    req.AssignedCollectorID,
		OccurredAt:     s.now().UTC(),
	}
}

// publish runs after commit, so failures are logged and swallowed.
func (s *buyRequestService) publish(ctx context.Context, events ...event.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		zap.L().Warn("failed to publish buy request events",
			zap.String("type", events[0].Type),
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

func (s *buyRequestService) invalidateFeed(ctx context.Context) {
	if err := s.feed.Invalidate(ctx); err != nil {
		zap.L().Warn("failed to invalidate donation feed cache", zap.Error(err))
	}
}

// notFoundOr maps a repository miss to nf and wraps anything else as a DB error.
func notFoundOr(err error, nf *errorx.CodeError, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nf
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

// viewer decides which OTP a projection may carry
type viewer int

const (
	viewerNone viewer = iota
	viewerDonor
	viewerRequester
	viewerCollector
)

func toBuyRequestResponse(req model.BuyRequest, v viewer) BuyRequestResponse {
	res := BuyRequestResponse{
		ID:             req.ID.String(),
		DonationID:     req.DonationID.String(),
		RequesterID:    req.RequesterID.String(),
		Status:         req.Status,
		Message:        req.Message,
		DeliveryStatus: req.DeliveryStatus,
		CreatedAt:      req.CreatedAt.Format(timeLayout),
		UpdatedAt:      req.UpdatedAt.Format(timeLayout),
	}
	if req.AssignedCollectorID != nil {
		id := req.AssignedCollectorID.String()
		res.AssignedCollectorID = &id
	}
	if req.Requester != nil {
		res.RequesterName = req.Requester.FullName
		res.RequesterPhone = req.Requester.Phone
		res.RequesterAddress = req.Requester.FullAddress
	}
	if d := req.Donation; d != nil {
		res.DonationTitle = d.Title
		res.DonationAddress = d.Address
		res.DonorID = d.DonorID.String()
		if d.Donor != nil {
			res.DonorName = d.Donor.FullName
			res.DonorPhone = d.Donor.Phone
		}
	}

	switch v {
	case viewerDonor:
		res.SenderOTP = req.SenderOTP
	case viewerRequester:
		res.ReceiverOTP = req.ReceiverOTP
	}
	return res
}

func toBuyRequestResponses(reqs []model.BuyRequest, v viewer) []BuyRequestResponse {
	out := make([]BuyRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toBuyRequestResponse(r, v))
	}
	return out
}
