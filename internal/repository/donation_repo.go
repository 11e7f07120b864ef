package repository

import (
	"context"

	"savefood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DonationRepository is the donation store consumed by the buy request lifecycle
type DonationRepository interface {
	Create(ctx context.Context, donation *model.FoodDonation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error)
	// FindByIDForUpdate locks the donation row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error)
	MarkSold(ctx context.Context, id uuid.UUID) error
	ListSafe(ctx context.Context, page, limit int) ([]model.FoodDonation, int64, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.FoodDonation, int64, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *model.FoodDonation) error {
	return GetDB(ctx, r.db).Create(donation).Error
}

func (r *donationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error) {
	var donation model.FoodDonation
	if err := GetDB(ctx, r.db).Preload("Donor").First(&donation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error) {
	var donation model.FoodDonation
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) MarkSold(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Model(&model.FoodDonation{}).Where("id = ?", id).Update("is_sold", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *donationRepository) ListSafe(ctx context.Context, page, limit int) ([]model.FoodDonation, int64, error) {
	return r.list(GetDB(ctx, r.db).Where("is_safe = ?", true), page, limit)
}

func (r *donationRepository) ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.FoodDonation, int64, error) {
	return r.list(GetDB(ctx, r.db).Where("donor_id = ?", donorID), page, limit)
}

func (r *donationRepository) list(db *gorm.DB, page, limit int) ([]model.FoodDonation, int64, error) {
	var donations []model.FoodDonation
	var total int64

	db = db.Session(&gorm.Session{})
	if err := db.Model(&model.FoodDonation{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Donor").Order("created_at DESC").Offset(offset).Limit(limit).Find(&donations).Error; err != nil {
		return nil, 0, err
	}

	return donations, total, nil
}
