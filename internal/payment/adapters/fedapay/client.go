package fedapay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/payment/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Provider = "fedapay"

// Client talks to the FedaPay REST API. It is constructed once with explicit
// configuration and injected where needed; there is no package-level state.
type Client struct {
	baseURL     string
	apiKey      string
	currency    string
	callbackURL string
	httpClient  *http.Client
	log         *zap.Logger
}

func NewClient(cfg config.FedaPayConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		currency:    cfg.Currency,
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log.Named("fedapay.client"),
	}
}

type apiCustomer struct {
	Firstname   string         `json:"firstname,omitempty"`
	Lastname    string         `json:"lastname,omitempty"`
	PhoneNumber apiPhoneNumber `json:"phone_number"`
}

type apiPhoneNumber struct {
	Number  string `json:"number"`
	Country string `json:"country"`
}

type apiCurrency struct {
	ISO string `json:"iso"`
}

type transactionBody struct {
	Description string         `json:"description"`
	Amount      int64          `json:"amount"`
	Currency    apiCurrency    `json:"currency"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Customer    apiCustomer    `json:"customer"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type transactionEnvelope struct {
	Transaction struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Status    string      `json:"status"`
	} `json:"v1/transaction"`
}

type tokenEnvelope struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type payoutBody struct {
	Amount      int64          `json:"amount"`
	Currency    apiCurrency    `json:"currency"`
	Customer    apiCustomer    `json:"customer"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type payoutEnvelope struct {
	Payout struct {
		ID     json.Number `json:"id"`
		Status string      `json:"status"`
	} `json:"v1/payout"`
}

// CreateCharge creates a transaction and generates its payment token. The
// token is what the client app hands to the FedaPay checkout widget.
func (c *Client) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := transactionBody{
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    apiCurrency{ISO: c.currency},
		CallbackURL: c.callbackURL,
		Customer: apiCustomer{
			Firstname: req.Customer.FirstName,
			Lastname:  req.Customer.LastName,
			PhoneNumber: apiPhoneNumber{
				Number:  req.Customer.Phone,
				Country: req.Customer.CountryCode,
			},
		},
		Metadata: map[string]any{"user_id": req.Customer.UserID},
	}

	var created transactionEnvelope
	if err := c.post(ctx, "/v1/transactions", body, &created); err != nil {
		return nil, err
	}
	id := created.Transaction.ID.String()
	if id == "" || id == "0" {
		return nil, domain.ErrProviderUnavailable
	}

	var token tokenEnvelope
	if err := c.post(ctx, "/v1/transactions/"+id+"/token", nil, &token); err != nil {
		return nil, err
	}

	return &domain.Charge{
		ID:           id,
		Reference:    created.Transaction.Reference,
		Status:       created.Transaction.Status,
		PaymentToken: token.Token,
	}, nil
}

// CreatePayout creates and immediately schedules a disbursement.
func (c *Client) CreatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.Payout, error) {
	body := payoutBody{
		Amount:      req.Amount,
		Currency:    apiCurrency{ISO: c.currency},
		CallbackURL: c.callbackURL,
		Customer: apiCustomer{
			Firstname: req.Customer.FirstName,
			Lastname:  req.Customer.LastName,
			PhoneNumber: apiPhoneNumber{
				Number:  req.Customer.Phone,
				Country: req.Customer.CountryCode,
			},
		},
		Metadata: map[string]any{"user_id": req.Customer.UserID},
	}

	var created payoutEnvelope
	if err := c.post(ctx, "/v1/payouts", body, &created); err != nil {
		return nil, err
	}
	id := created.Payout.ID.String()
	if id == "" || id == "0" {
		return nil, domain.ErrProviderUnavailable
	}

	start := map[string]any{"send_now": true}
	var started payoutEnvelope
	if err := c.put(ctx, "/v1/payouts/"+id+"/start", start, &started); err != nil {
		return nil, err
	}

	return &domain.Payout{ID: id, Status: started.Payout.Status}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("provider call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(raw), 512)),
		)
		return fmt.Errorf("%w: status %s", domain.ErrProviderUnavailable, strconv.Itoa(resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
