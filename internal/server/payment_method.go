package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
)

type addPaymentMethodRequest struct {
	Nickname  string `json:"nickname"`
	Operator  string `json:"operator"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) AddPaymentMethod(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req addPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		AbortWithError(c, newValidationError("phone", "required", "phone is required"))
		return
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		AbortWithError(c, newValidationError("operator", "required", "operator is required"))
		return
	}

	method := accountdomain.PaymentMethod{
		ID:        s.genID.Generate().String(),
		UserID:    uid,
		Nickname:  strings.TrimSpace(req.Nickname),
		Operator:  operator,
		Phone:     phone,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.accounts.AddPaymentMethod(c.Request.Context(), s.db, &method); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "method": method})
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	methods, err := s.accounts.ListPaymentMethods(c.Request.Context(), s.db, uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "methods": methods})
}
