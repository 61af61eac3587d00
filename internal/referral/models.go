package referral

import "time"

// Code maps a 6-character invite code to the account that owns it. Codes are
// globally unique and never reassigned.
type Code struct {
	Code      string    `gorm:"primaryKey" json:"code"`
	OwnerID   string    `gorm:"not null;index" json:"ownerId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (Code) TableName() string { return "referral_codes" }

// Downline is one member of an account's direct downline and the lifetime
// bonus earned from them.
type Downline struct {
	ReferrerID  string    `gorm:"primaryKey" json:"referrerId"`
	MemberID    string    `gorm:"primaryKey" json:"memberId"`
	TotalEarned int64     `gorm:"not null;default:0" json:"totalEarned"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (Downline) TableName() string { return "referral_downlines" }

// Referrer is one step of a resolved referral chain. Level 1 is the direct
// referrer.
type Referrer struct {
	UID   string
	Level int
}
