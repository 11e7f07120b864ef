package model

import (
	"time"

	"github.com/google/uuid"
)

// FoodType constants
const (
	FoodTypePacked     = "packed"
	FoodTypeHomeCooked = "homecooked"
	FoodTypeOrganic    = "organic"
)

// FoodCategory constants
const (
	FoodCategoryEdible     = "edible"
	FoodCategoryRecyclable = "recyclable"
	FoodCategoryRejected   = "rejected"
)

// FoodDonation is a listed surplus food item.
// IsSold is only ever flipped by accepting a buy request.
type FoodDonation struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DonorID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"donor_id"`
	Donor          *User      `gorm:"foreignKey:DonorID;constraint:OnDelete:CASCADE;" json:"donor,omitempty"`
	Title          string     `gorm:"type:varchar(200);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	FoodType       string     `gorm:"type:varchar(20);not null" json:"food_type"`
	Category       string     `gorm:"type:varchar(20);not null" json:"category"`
	ImagePath      string     `gorm:"type:varchar(255)" json:"image_path"` // relative to MEDIA_ROOT
	Latitude       float64    `gorm:"not null" json:"latitude"`
	Longitude      float64    `gorm:"not null" json:"longitude"`
	Address        string     `gorm:"type:text" json:"address"`
	ExpiryDate     *time.Time `gorm:"type:date" json:"expiry_date"`
	SafetyHours    *int       `json:"safety_hours"`                               // home-cooked food only
	SafetyAnalysis string     `gorm:"type:jsonb;not null" json:"safety_analysis"` // opaque annotation from the image checker
	IsSafe         bool       `gorm:"not null;index" json:"is_safe"`
	IsSold         bool       `gorm:"not null" json:"is_sold"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
