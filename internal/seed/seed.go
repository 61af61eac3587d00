package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	"gorm.io/gorm"
)

const rootAccountID = "root"

// EnsureRootAccount seeds the account owning the bootstrap invite code.
// Registration is invite-only, so the referral graph needs a root to hang
// the first real accounts from.
func EnsureRootAccount(db *gorm.DB, inviteCode string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	if inviteCode == "" {
		return errors.New("bootstrap invite code is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account accountdomain.Account
		err := tx.WithContext(ctx).Where("id = ?", rootAccountID).First(&account).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			account = accountdomain.Account{
				ID:             rootAccountID,
				Phone:          "",
				CountryCode:    "",
				MyReferralCode: inviteCode,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
				return err
			}
		}

		return tx.WithContext(ctx).Exec(
			`INSERT INTO referral_codes (code, owner_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (code) DO NOTHING`,
			inviteCode, rootAccountID, now,
		).Error
	})
}
