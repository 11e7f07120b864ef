package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateDonation    = "CREATE_DONATION"
	ActionRegisterCollector = "REGISTER_COLLECTOR"
	ActionSetCollectorState = "SET_COLLECTOR_ACTIVE"

	// Buy request lifecycle actions
	ActionCreateBuyRequest     = "CREATE_BUY_REQUEST"
	ActionAcceptBuyRequest     = "ACCEPT_BUY_REQUEST"
	ActionRejectBuyRequest     = "REJECT_BUY_REQUEST"
	ActionAutoRejectBuyRequest = "AUTO_REJECT_BUY_REQUEST"
	ActionVerifyPickupOTP      = "VERIFY_PICKUP_OTP"
	ActionVerifyDeliveryOTP    = "VERIFY_DELIVERY_OTP"
	ActionAssignCollector      = "ASSIGN_COLLECTOR"
)

// AuditLog tracks Who, What, and When for lifecycle changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
