package model

import (
	"time"

	"github.com/google/uuid"
)

// BuyRequest status constants. Accepted and rejected are terminal.
const (
	BuyRequestPending  = "pending"
	BuyRequestAccepted = "accepted"
	BuyRequestRejected = "rejected"
)

// Delivery status constants, advancing waiting -> collected -> delivered
const (
	DeliveryWaiting   = "waiting"
	DeliveryCollected = "collected"
	DeliveryDelivered = "delivered"
)

// Respond actions
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// BuyRequest is a requester's claim on a donation.
// A requester holds at most one request per donation.
type BuyRequest struct {
	ID                  uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID         uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_buy_requests_requester_donation,priority:1" json:"requester_id"`
	Requester           *User               `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE;" json:"requester,omitempty"`
	DonationID          uuid.UUID           `gorm:"type:uuid;not null;index;uniqueIndex:idx_buy_requests_requester_donation,priority:2" json:"donation_id"`
	Donation            *FoodDonation       `gorm:"foreignKey:DonationID;constraint:OnDelete:CASCADE;" json:"donation,omitempty"`
	Status              string              `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Message             string              `gorm:"type:text" json:"message"`
	SenderOTP           string              `gorm:"type:varchar(6)" json:"-"`
	ReceiverOTP         string              `gorm:"type:varchar(6)" json:"-"`
	DeliveryStatus      string              `gorm:"type:varchar(20);not null;default:'waiting'" json:"delivery_status"`
	AssignedCollectorID *uuid.UUID          `gorm:"type:uuid;index" json:"assigned_collector_id"`
	AssignedCollector   *FoodWasteCollector `gorm:"foreignKey:AssignedCollectorID;constraint:OnDelete:SET NULL;" json:"assigned_collector,omitempty"`
	CreatedAt           time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// IsAssignedTo reports whether the request is assigned to the given collector
func (b *BuyRequest) IsAssignedTo(collectorID uuid.UUID) bool {
	return b.AssignedCollectorID != nil && *b.AssignedCollectorID == collectorID
}
