package repository

import (
	"context"

	"savefood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollectorRepository is the collector registry
type CollectorRepository interface {
	Create(ctx context.Context, collector *model.FoodWasteCollector) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FoodWasteCollector, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.FoodWasteCollector, error)
	List(ctx context.Context, page, limit int) ([]model.FoodWasteCollector, int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type collectorRepository struct {
	db *gorm.DB
}

func NewCollectorRepository(db *gorm.DB) CollectorRepository {
	return &collectorRepository{db: db}
}

func (r *collectorRepository) Create(ctx context.Context, collector *model.FoodWasteCollector) error {
	return GetDB(ctx, r.db).Create(collector).Error
}

func (r *collectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodWasteCollector, error) {
	var collector model.FoodWasteCollector
	if err := GetDB(ctx, r.db).Preload("User").First(&collector, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &collector, nil
}

func (r *collectorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.FoodWasteCollector, error) {
	var collector model.FoodWasteCollector
	if err := GetDB(ctx, r.db).Preload("User").First(&collector, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &collector, nil
}

func (r *collectorRepository) List(ctx context.Context, page, limit int) ([]model.FoodWasteCollector, int64, error) {
	var collectors []model.FoodWasteCollector
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.FoodWasteCollector{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&collectors).Error; err != nil {
		return nil, 0, err
	}

	return collectors, total, nil
}

func (r *collectorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := GetDB(ctx, r.db).Model(&model.FoodWasteCollector{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
