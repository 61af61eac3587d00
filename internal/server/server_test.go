package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/identity"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	paymentdomain "github.com/angedjimenou/investapp/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubPayments struct {
	ingestErr   error
	lastDeposit paymentdomain.DepositRequest
}

func (s *stubPayments) Deposit(ctx context.Context, uid string, req paymentdomain.DepositRequest) (*paymentdomain.DepositResult, error) {
	s.lastDeposit = req
	return &paymentdomain.DepositResult{TransactionID: "txn-1", PaymentToken: "tok"}, nil
}

func (s *stubPayments) Withdraw(ctx context.Context, uid string, req paymentdomain.WithdrawRequest) (*paymentdomain.WithdrawResult, error) {
	return &paymentdomain.WithdrawResult{PayoutID: "payout-1"}, nil
}

func (s *stubPayments) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	return s.ingestErr
}

func newTestServer(t *testing.T, payments paymentdomain.Service) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create identities: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	ident, err := identity.NewService(identity.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("identity service: %v", err)
	}

	srv := &Server{
		cfg:            config.Config{},
		log:            zap.NewNop(),
		db:             db,
		genID:          node,
		identity:       ident,
		payments:       payments,
		authLimiter:    newRateLimiter(1000, time.Minute),
		webhookLimiter: newRateLimiter(1000, time.Minute),
	}

	engine := gin.New()
	engine.POST("/webhooks/:provider", srv.RateLimited(srv.webhookLimiter), srv.ProviderWebhook)
	engine.GET("/protected", srv.RequireAuth(), func(c *gin.Context) {
		uid, _ := srv.userID(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid})
	})
	return srv, engine
}

func TestProviderWebhookAcknowledgesReplay(t *testing.T) {
	_, engine := newTestServer(t, &stubPayments{ingestErr: paymentdomain.ErrEventAlreadyProcessed})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/fedapay", strings.NewReader(`{}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["duplicate"] != true {
		t.Fatalf("expected duplicate flag, got %v", body)
	}
}

func TestProviderWebhookAcknowledgesUnknownEntry(t *testing.T) {
	_, engine := newTestServer(t, &stubPayments{ingestErr: ledgerdomain.ErrEntryNotFound})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/fedapay", strings.NewReader(`{}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown entry, got %d", rec.Code)
	}
}

func TestProviderWebhookRejectsBadSignature(t *testing.T) {
	_, engine := newTestServer(t, &stubPayments{ingestErr: paymentdomain.ErrInvalidSignature})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/fedapay", strings.NewReader(`{}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != false || body["error"] != "invalid_signature" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRequireAuth(t *testing.T) {
	srv, engine := newTestServer(t, &stubPayments{})

	token, err := srv.identity.IssueToken("user-42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
	}
}

func TestPurchaseRequestBindsClientFieldNames(t *testing.T) {
	var req purchaseRequest
	payload := `{"productId":"p1","productPrice":5000,"dailyRevenue":200,"durationDays":30}`
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.ProductID != "p1" || req.Price != 5000 || req.DailyRevenue != 200 || req.DurationDays != 30 {
		t.Fatalf("unexpected binding: %+v", req)
	}
}

func TestCreateDepositBindsClientFieldNames(t *testing.T) {
	stub := &stubPayments{}
	srv, engine := newTestServer(t, stub)
	engine.POST("/deposits", srv.RequireAuth(), srv.CreateDeposit)

	token, err := srv.identity.IssueToken("user-42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/deposits",
		strings.NewReader(`{"amount":5000,"paymentMethodId":"pm-1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastDeposit.Amount != 5000 || stub.lastDeposit.MethodID != "pm-1" {
		t.Fatalf("request did not reach the service intact: %+v", stub.lastDeposit)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["transactionId"] != "txn-1" || body["paymentToken"] != "tok" {
		t.Fatalf("expected top-level result fields, got %v", body)
	}
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	limiter := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected fourth request to be limited")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("expected other client to pass")
	}
}
