package repository

import (
	"context"
	"errors"
	"time"

	"github.com/angedjimenou/investapp/internal/account/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide builds the gorm-backed account repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Get(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	return tx.WithContext(ctx).Create(account).Error
}

func (r *repository) ApplyBalanceDelta(ctx context.Context, tx *gorm.DB, id string, delta int64) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET balance = balance + ?, updated_at = ?
		 WHERE id = ? AND balance + ? >= 0`,
		delta,
		time.Now().UTC(),
		id,
		delta,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing account from a guard rejection.
		exists, err := r.exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *repository) IncrementDailyInvest(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return r.increment(ctx, tx, id, "daily_invest", amount)
}

func (r *repository) IncrementDailyReferral(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return r.increment(ctx, tx, id, "daily_referral", amount)
}

func (r *repository) IncrementReferralRevenue(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return r.increment(ctx, tx, id, "total_referral_revenue", amount)
}

func (r *repository) MarkFirstInvestmentDone(ctx context.Context, tx *gorm.DB, id string) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET first_investment_done = TRUE, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) increment(ctx context.Context, tx *gorm.DB, id string, column string, amount int64) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE accounts SET `+column+` = `+column+` + ?, updated_at = ? WHERE id = ?`,
		amount,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) exists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("accounts").
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListPaymentMethods(ctx context.Context, db *gorm.DB, userID string) ([]domain.PaymentMethod, error) {
	var methods []domain.PaymentMethod
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) GetPaymentMethod(ctx context.Context, db *gorm.DB, userID string, methodID string) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, methodID).
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMethodNotFound
		}
		return nil, err
	}
	return &method, nil
}

func (r *repository) AddPaymentMethod(ctx context.Context, db *gorm.DB, method *domain.PaymentMethod) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Table("payment_methods").
			Where("user_id = ?", method.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= domain.MaxPaymentMethods {
			return domain.ErrMethodLimitReached
		}
		return tx.WithContext(ctx).Create(method).Error
	})
}
