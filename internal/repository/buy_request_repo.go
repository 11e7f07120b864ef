package repository

import (
	"context"

	"savefood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuyRequestRepository is the request store owned by the buy request lifecycle.
// Only the lifecycle service mutates requests.
type BuyRequestRepository interface {
	Create(ctx context.Context, req *model.BuyRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error)
	// FindDonationID reads only the donation a request belongs to.
	FindDonationID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error)
	FindByRequesterAndDonation(ctx context.Context, requesterID, donationID uuid.UUID) (*model.BuyRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error)
	ListByCollector(ctx context.Context, collectorID uuid.UUID, status string) ([]model.BuyRequest, error)
	ListPendingByDonation(ctx context.Context, donationID uuid.UUID) ([]model.BuyRequest, error)
	Update(ctx context.Context, req *model.BuyRequest) error
	// RejectPendingSiblings rejects every pending request on the donation except keepID.
	RejectPendingSiblings(ctx context.Context, donationID, keepID uuid.UUID) (int64, error)
	// AdvanceDeliveryStatus moves delivery_status from -> to only if it still equals from.
	AdvanceDeliveryStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetCollector(ctx context.Context, id uuid.UUID, collectorID *uuid.UUID) error
}

type buyRequestRepository struct {
	db *gorm.DB
}

func NewBuyRequestRepository(db *gorm.DB) BuyRequestRepository {
	return &buyRequestRepository{db: db}
}

func (r *buyRequestRepository) Create(ctx context.Context, req *model.BuyRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *buyRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error) {
	var req model.BuyRequest
	if err := r.withRelations(GetDB(ctx, r.db)).First(&req, "buy_requests.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *buyRequestRepository) FindDonationID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var req model.BuyRequest
	if err := GetDB(ctx, r.db).Select("donation_id").Where("id = ?", id).First(&req).Error; err != nil {
		return uuid.Nil, err
	}
	return req.DonationID, nil
}

func (r *buyRequestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error) {
	var req model.BuyRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *buyRequestRepository) FindByRequesterAndDonation(ctx context.Context, requesterID, donationID uuid.UUID) (*model.BuyRequest, error) {
	var req model.BuyRequest
	if err := GetDB(ctx, r.db).
		Where("requester_id = ? AND donation_id = ?", requesterID, donationID).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *buyRequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error) {
	return r.list(GetDB(ctx, r.db).Where("buy_requests.requester_id = ?", requesterID), page, limit)
}

func (r *buyRequestRepository) ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error) {
	db := GetDB(ctx, r.db).
		Joins("JOIN food_donations ON food_donations.id = buy_requests.donation_id").
		Where("food_donations.donor_id = ?", donorID)
	return r.list(db, page, limit)
}

func (r *buyRequestRepository) ListByCollector(ctx context.Context, collectorID uuid.UUID, status string) ([]model.BuyRequest, error) {
	var requests []model.BuyRequest
	if err := r.withRelations(GetDB(ctx, r.db)).
		Where("buy_requests.assigned_collector_id = ? AND buy_requests.status = ?", collectorID, status).
		Order("buy_requests.created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *buyRequestRepository) ListPendingByDonation(ctx context.Context, donationID uuid.UUID) ([]model.BuyRequest, error) {
	var requests []model.BuyRequest
	if err := GetDB(ctx, r.db).
		Where("donation_id = ? AND status = ?", donationID, model.BuyRequestPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *buyRequestRepository) Update(ctx context.Context, req *model.BuyRequest) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(req).Error
}

func (r *buyRequestRepository) RejectPendingSiblings(ctx context.Context, donationID, keepID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.BuyRequest{}).
		Where("donation_id = ? AND status = ? AND id <> ?", donationID, model.BuyRequestPending, keepID).
		Update("status", model.BuyRequestRejected)
	return res.RowsAffected, res.Error
}

func (r *buyRequestRepository) AdvanceDeliveryStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.BuyRequest{}).
		Where("id = ? AND status = ? AND delivery_status = ?", id, model.BuyRequestAccepted, from).
		Update("delivery_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *buyRequestRepository) SetCollector(ctx context.Context, id uuid.UUID, collectorID *uuid.UUID) error {
	res := GetDB(ctx, r.db).Model(&model.BuyRequest{}).Where("id = ?", id).
		Update("assigned_collector_id", collectorID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *buyRequestRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Requester").Preload("Donation").Preload("Donation.Donor").Preload("AssignedCollector")
}

func (r *buyRequestRepository) list(db *gorm.DB, page, limit int) ([]model.BuyRequest, int64, error) {
	var requests []model.BuyRequest
	var total int64

	db = db.Session(&gorm.Session{})
	if err := db.Model(&model.BuyRequest{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.withRelations(db).
		Order("buy_requests.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
