package model

import (
	"time"

	"github.com/google/uuid"
)

// FoodWasteCollector is a user registered to move accepted donations from donor to requester
type FoodWasteCollector struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User          *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	VehicleNumber string    `gorm:"type:varchar(20)" json:"vehicle_number"`
	ServiceArea   string    `gorm:"type:varchar(50)" json:"service_area"` // district value
	IsActive      bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
