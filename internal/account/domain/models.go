package domain

import "time"

// Account is the per-user money record: balance, daily accrual counters and
// the referral linkage. Balances are integer minor currency units.
type Account struct {
	ID                   string  `gorm:"primaryKey" json:"id"`
	Phone                string  `gorm:"type:text;not null" json:"phone"`
	CountryCode          string  `gorm:"type:text;not null" json:"countryCode"`
	Balance              int64   `gorm:"not null;default:0" json:"balance"`
	DailyInvest          int64   `gorm:"not null;default:0" json:"dailyInvest"`
	DailyReferral        int64   `gorm:"not null;default:0" json:"dailyReferral"`
	TotalReferralRevenue int64   `gorm:"not null;default:0" json:"totalReferralRevenue"`
	ReferrerID           *string `gorm:"index" json:"referrerId,omitempty"`
	MyReferralCode       string  `gorm:"type:text;not null;uniqueIndex" json:"myReferralCode"`
	FirstInvestmentDone  bool    `gorm:"not null;default:false" json:"firstInvestmentDone"`
	CreatedAt            time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// PaymentMethod is a stored mobile-money destination. An account keeps at
// most MaxPaymentMethods of them.
type PaymentMethod struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	Nickname  string    `gorm:"type:text;not null" json:"nickname"`
	Operator  string    `gorm:"type:text;not null" json:"operator"`
	Phone     string    `gorm:"type:text;not null" json:"phone"`
	FirstName string    `gorm:"type:text;not null" json:"firstName"`
	LastName  string    `gorm:"type:text;not null" json:"lastName"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (PaymentMethod) TableName() string { return "payment_methods" }

const MaxPaymentMethods = 3
