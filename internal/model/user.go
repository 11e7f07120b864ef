package model

import (
	"time"

	"github.com/google/uuid"
)

// UserType constants
const (
	UserTypeCitizen      = "citizen"
	UserTypeRestaurant   = "restaurant"
	UserTypeOrganization = "organization"
)

// Token roles. Donor/requester tokens carry the user's UserType.
const (
	RoleAdmin     = "admin"
	RoleCollector = "collector"
)

// Choice is a value/label pair served by the lookup endpoints
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Districts lists the supported Kerala districts in display order
var Districts = []Choice{
	{"thiruvananthapuram", "Thiruvananthapuram"},
	{"kollam", "Kollam"},
	{"pathanamthitta", "Pathanamthitta"},
	{"alappuzha", "Alappuzha"},
	{"kottayam", "Kottayam"},
	{"idukki", "Idukki"},
	{"ernakulam", "Ernakulam"},
	{"thrissur", "Thrissur"},
	{"palakkad", "Palakkad"},
	{"malappuram", "Malappuram"},
	{"kozhikode", "Kozhikode"},
	{"wayanad", "Wayanad"},
	{"kannur", "Kannur"},
	{"kasaragod", "Kasaragod"},
}

// UserTypes lists the account types a user can sign up as
var UserTypes = []Choice{
	{UserTypeCitizen, "Citizen"},
	{UserTypeRestaurant, "Restaurant"},
	{UserTypeOrganization, "Organization"},
}

// IsChoice reports whether value is one of the choices
func IsChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// User is a marketplace account. The same account can donate and request food.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName    string    `gorm:"type:varchar(150);not null" json:"full_name"`
	Phone       string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"phone"`
	PinCode     string    `gorm:"type:varchar(6);not null" json:"pin_code"`
	District    string    `gorm:"type:varchar(50);not null" json:"district"`
	FullAddress string    `gorm:"type:text" json:"full_address"`
	UserType    string    `gorm:"type:varchar(20);not null" json:"user_type"` // citizen, restaurant, organization
	IsStaff     bool      `gorm:"not null" json:"-"`                          // admin screens
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Role returns the role carried in the user's access token
func (u *User) Role() string {
	if u.IsStaff {
		return RoleAdmin
	}
	return u.UserType
}
