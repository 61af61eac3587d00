package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	"github.com/angedjimenou/investapp/internal/identity"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	"github.com/angedjimenou/investapp/internal/onboarding"
	paymentdomain "github.com/angedjimenou/investapp/internal/payment/domain"
	"github.com/angedjimenou/investapp/internal/purchase"
	"github.com/angedjimenou/investapp/internal/referral"
)

var (
	ErrNotFound         = errors.New("not_found")
	ErrMethodNotAllowed = errors.New("method_not_allowed")
	ErrTooManyRequests  = errors.New("too_many_requests")
	ErrUnauthorized     = errors.New("unauthorized")
)

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.code }

func invalidRequestError() error {
	return &apiError{status: http.StatusBadRequest, code: "invalid_request", message: "request body could not be parsed"}
}

func newValidationError(field, code, message string) error {
	return &apiError{status: http.StatusBadRequest, code: field + "_" + code, message: message}
}

// AbortWithError maps domain sentinels onto HTTP statuses and writes the
// uniform error envelope.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		abort(c, apiErr.status, apiErr.code)
		return
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrBadCredentials),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		abort(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, paymentdomain.ErrFirstInvestmentRequired),
		errors.Is(err, accountdomain.ErrInsufficientFunds),
		errors.Is(err, accountdomain.ErrMethodLimitReached),
		errors.Is(err, paymentdomain.ErrWithdrawalBelowMinimum),
		errors.Is(err, identity.ErrAlreadyRegistered),
		errors.Is(err, referral.ErrInvalidInviteCode):
		abort(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, accountdomain.ErrMethodNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound):
		abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMethodNotAllowed):
		abort(c, http.StatusMethodNotAllowed, err.Error())
	case errors.Is(err, ErrTooManyRequests):
		abort(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, onboarding.ErrInvalidRegistration),
		errors.Is(err, purchase.ErrInvalidPurchase),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidEntry):
		abort(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, paymentdomain.ErrProviderUnavailable):
		abort(c, http.StatusInternalServerError, err.Error())
	default:
		abort(c, http.StatusInternalServerError, "internal_error")
	}
}

func abort(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": code})
}
