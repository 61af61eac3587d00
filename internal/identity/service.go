package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angedjimenou/investapp/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyRegistered = errors.New("already_registered")
	ErrInvalidToken      = errors.New("invalid_token")
	ErrBadCredentials    = errors.New("bad_credentials")
	ErrMissingJWTSecret  = errors.New("missing_jwt_secret")
)

// Identity is the credential record behind an account. The id doubles as the
// account id.
type Identity struct {
	ID           string    `gorm:"primaryKey"`
	Login        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Identity) TableName() string { return "identities" }

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

// Service is the opaque identity collaborator: it creates credential
// records, checks passwords and turns bearer tokens into user ids.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	secret   []byte
	tokenTTL time.Duration
}

func NewService(p Params) (*Service, error) {
	secret := strings.TrimSpace(p.Cfg.JWTSecret)
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("identity.service"),
		genID:    p.GenID,
		secret:   []byte(secret),
		tokenTTL: p.Cfg.TokenTTL,
	}, nil
}

// LoginHandle synthesizes the unique login from phone and country code.
func LoginHandle(countryCode, phone string) string {
	return countryCode + phone + "@investapp.local"
}

// Create registers a new credential record and returns the issued user id.
// A login collision means the phone number is already registered.
func (s *Service) Create(ctx context.Context, login, password string) (string, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Table("identities").
		Where("login = ?", login).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "", ErrAlreadyRegistered
	}

	hash, err := hashPassword(password)
	if err != nil {
		return "", err
	}
	id := s.genID.Generate().String()
	record := Identity{
		ID:           id,
		Login:        login,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}
	return id, nil
}

// Authenticate checks a login/password pair and returns the user id.
func (s *Service) Authenticate(ctx context.Context, login, password string) (string, error) {
	var record Identity
	err := s.db.WithContext(ctx).Where("login = ?", login).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrBadCredentials
		}
		return "", err
	}
	if !verifyPassword(password, record.PasswordHash) {
		return "", ErrBadCredentials
	}
	return record.ID, nil
}

// IssueToken mints a signed bearer token for uid.
func (s *Service) IssueToken(uid string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken resolves a bearer token to a user id.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
