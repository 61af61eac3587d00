package domain

import "time"

type InvestmentStatus string

const (
	StatusActive InvestmentStatus = "active"
	StatusEnded  InvestmentStatus = "ended"
)

// Investment is one purchased product. Immutable after creation except for
// the status transition when the duration elapses.
type Investment struct {
	ID           string           `gorm:"primaryKey" json:"id"`
	UserID       string           `gorm:"not null;index" json:"userId"`
	ProductID    string           `gorm:"type:text;not null" json:"productId"`
	Price        int64            `gorm:"not null" json:"price"`
	DailyRevenue int64            `gorm:"not null" json:"dailyRevenue"`
	DurationDays int              `gorm:"not null" json:"durationDays"`
	StartDate    time.Time        `gorm:"not null" json:"startDate"`
	EndDate      time.Time        `gorm:"not null" json:"endDate"`
	Status       InvestmentStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt    time.Time        `gorm:"not null" json:"createdAt"`
}

// TableName sets the database table name.
func (Investment) TableName() string { return "investments" }
