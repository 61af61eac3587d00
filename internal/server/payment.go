package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	paymentdomain "github.com/angedjimenou/investapp/internal/payment/domain"
)

type depositRequest struct {
	Amount   int64  `json:"amount"`
	MethodID string `json:"paymentMethodId"`
}

func (s *Server) CreateDeposit(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payments.Deposit(c.Request.Context(), uid, paymentdomain.DepositRequest{
		Amount:   req.Amount,
		MethodID: strings.TrimSpace(req.MethodID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transactionId": resp.TransactionID,
		"paymentToken":  resp.PaymentToken,
	})
}

type withdrawRequest struct {
	Amount   int64  `json:"amount"`
	MethodID string `json:"methodId"`
}

func (s *Server) CreateWithdrawal(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payments.Withdraw(c.Request.Context(), uid, paymentdomain.WithdrawRequest{
		Amount:   req.Amount,
		MethodID: strings.TrimSpace(req.MethodID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"payoutId":   resp.PayoutID,
		"fee":        resp.Fee,
		"netAmount":  resp.NetAmount,
		"newBalance": resp.NewBalance,
	})
}

func (s *Server) ListTransactions(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var entries []ledgerdomain.Entry
	err := s.db.WithContext(c.Request.Context()).
		Where("uid = ?", uid).
		Order("created_at DESC").
		Limit(100).
		Find(&entries).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": entries})
}

// ProviderWebhook ingests provider notifications. Replays and notifications
// for entries we do not know are acknowledged with 200 so the provider stops
// retrying; bad signatures are rejected.
func (s *Server) ProviderWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	err = s.payments.IngestWebhook(c.Request.Context(), c.Param("provider"), payload, c.Request.Header)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
	case errors.Is(err, ledgerdomain.ErrEntryNotFound):
		c.JSON(http.StatusOK, gin.H{"success": true, "unmatched": true})
	default:
		AbortWithError(c, err)
	}
}
