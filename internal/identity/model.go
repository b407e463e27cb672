package identity

import (
	"strings"
	"time"
)

// Role is the platform role a user registers with.
type Role string

const (
	RoleTenant   Role = "TENANT"
	RoleLandlord Role = "LANDLORD"
	RoleAgent    Role = "AGENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAgent:
		return true
	}
	return false
}

// KYCStatus tracks the identity document review stage.
type KYCStatus string

const (
	KYCNotSubmitted         KYCStatus = "NOT_SUBMITTED"
	KYCPending              KYCStatus = "PENDING"
	KYCApproved             KYCStatus = "APPROVED"
	KYCRejected             KYCStatus = "REJECTED"
	KYCResubmissionRequired KYCStatus = "RESUBMISSION_REQUIRED"
)

// Valid reports whether s is one of the known KYC statuses.
func (s KYCStatus) Valid() bool {
	switch s {
	case KYCNotSubmitted, KYCPending, KYCApproved, KYCRejected, KYCResubmissionRequired:
		return true
	}
	return false
}

// User represents a registered platform account identified by phone number.
type User struct {
	ID           int64
	PhoneNumber  string
	FullName     string
	Email        string
	PasswordHash []byte
	Role         Role
	IsVerified   bool
	KYCStatus    KYCStatus
	IsStaff      bool
	IsActive     bool
	DateJoined   time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// ShortName returns the first word of the full name.
func (u User) ShortName() string {
	if fields := strings.Fields(u.FullName); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func (u User) IsTenant() bool   { return u.Role == RoleTenant }
func (u User) IsLandlord() bool { return u.Role == RoleLandlord }
func (u User) IsAgent() bool    { return u.Role == RoleAgent }

// KYCApproved is true only when the review passed and the account is marked verified.
func (u User) KYCApproved() bool {
	return u.KYCStatus == KYCApproved && u.IsVerified
}

// CanPostProperties is advisory: listing creation itself is gated by role only.
func (u User) CanPostProperties() bool {
	return (u.IsLandlord() || u.IsAgent()) && u.KYCApproved()
}

// Credentials request structure.
type Credentials struct {
	PhoneNumber string
	Password    string
}

// Registration carries the self-service sign-up form.
type Registration struct {
	PhoneNumber     string `json:"phone_number" validate:"required,tzphone"`
	FullName        string `json:"full_name" validate:"notblank,max=150"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password2" validate:"required"`
	Role            Role   `json:"role" validate:"omitempty,oneof=TENANT LANDLORD AGENT"`
}

// ProfileUpdate lists the fields a user may change on their own account.
type ProfileUpdate struct {
	FullName *string `json:"full_name" validate:"omitnil,notblank,max=150"`
	Email    *string `json:"email" validate:"omitnil,omitempty,email,max=254"`
}

// Filter narrows administrative user listings.
type Filter struct {
	Role      Role
	KYCStatus KYCStatus
}
