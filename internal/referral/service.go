package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/angedjimenou/investapp/internal/cache"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6

	// MaxChainDepth bounds the upstream walk. It is also the only cycle
	// safety: the graph is acyclic by construction (a referrer must exist
	// before the member), so a depth bound suffices.
	MaxChainDepth = 5

	ownerCacheTTL = 10 * time.Minute
)

var (
	ErrInvalidInviteCode = errors.New("invalid_invite_code")
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Service owns referral codes, the downline ledger and the chain walker.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	owners *cache.TTL[string, string]
}

func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("referral.service"),
		owners: cache.NewTTL[string, string](),
	}
}

// ResolveCode returns the account id owning code, or ErrInvalidInviteCode.
// Code ownership is immutable, so hits are cached.
func (s *Service) ResolveCode(ctx context.Context, code string) (string, error) {
	if len(code) != CodeLength {
		return "", ErrInvalidInviteCode
	}
	if owner, ok := s.owners.Get(code); ok {
		return owner, nil
	}

	var row Code
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidInviteCode
		}
		return "", err
	}
	s.owners.Set(code, row.OwnerID, ownerCacheTTL)
	return row.OwnerID, nil
}

// GenerateCode draws random 6-character codes until one is found that is not
// already claimed. The code space is 36^6, so the expected number of draws
// stays at one for any realistic population.
func (s *Service) GenerateCode(ctx context.Context) (string, error) {
	for {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.db.WithContext(ctx).
			Table("referral_codes").
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

// ClaimCode inserts the code row inside the caller's transaction.
func (s *Service) ClaimCode(ctx context.Context, tx *gorm.DB, code string, ownerID string) error {
	return tx.WithContext(ctx).Create(&Code{
		Code:      code,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}).Error
}

// ResolveChain walks the single-parent back-references starting at userID and
// returns up to MaxChainDepth upstream referrers, closest first. The walk
// stops at a missing referrer or a missing account.
func (s *Service) ResolveChain(ctx context.Context, userID string) ([]Referrer, error) {
	chain := make([]Referrer, 0, MaxChainDepth)

	current, err := s.referrerOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	for level := 1; level <= MaxChainDepth && current != ""; level++ {
		exists, next, err := s.accountReferrer(ctx, current)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		chain = append(chain, Referrer{UID: current, Level: level})
		current = next
	}
	return chain, nil
}

// EnsureDownline records memberID in referrerID's downline with zero
// earnings. Replays are no-ops.
func (s *Service) EnsureDownline(ctx context.Context, tx *gorm.DB, referrerID, memberID string) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO referral_downlines (referrer_id, member_id, total_earned, created_at)
		 VALUES (?, ?, 0, ?)
		 ON CONFLICT (referrer_id, member_id) DO NOTHING`,
		referrerID,
		memberID,
		time.Now().UTC(),
	).Error
}

// AddEarnings increments the lifetime bonus a referrer earned from a member.
func (s *Service) AddEarnings(ctx context.Context, tx *gorm.DB, referrerID, memberID string, amount int64) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE referral_downlines
		 SET total_earned = total_earned + ?
		 WHERE referrer_id = ? AND member_id = ?`,
		amount,
		referrerID,
		memberID,
	).Error
}

// ListDownline returns an account's direct downline.
func (s *Service) ListDownline(ctx context.Context, referrerID string) ([]Downline, error) {
	var members []Downline
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Service) referrerOf(ctx context.Context, userID string) (string, error) {
	_, referrer, err := s.accountReferrer(ctx, userID)
	return referrer, err
}

func (s *Service) accountReferrer(ctx context.Context, userID string) (bool, string, error) {
	var rows []struct {
		ReferrerID *string
	}
	err := s.db.WithContext(ctx).
		Table("accounts").
		Select("referrer_id").
		Where("id = ?", userID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return false, "", err
	}
	if len(rows) == 0 {
		return false, "", nil
	}
	if rows[0].ReferrerID == nil {
		return true, "", nil
	}
	return true, *rows[0].ReferrerID, nil
}

func randomCode() (string, error) {
	out := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}
