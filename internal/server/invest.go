package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	investmentdomain "github.com/angedjimenou/investapp/internal/investment/domain"
	"github.com/angedjimenou/investapp/internal/purchase"
)

type purchaseRequest struct {
	ProductID    string `json:"productId"`
	Price        int64  `json:"productPrice"`
	DailyRevenue int64  `json:"dailyRevenue"`
	DurationDays int    `json:"durationDays"`
}

func (s *Server) PurchaseInvestment(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		AbortWithError(c, newValidationError("product_id", "required", "productId is required"))
		return
	}

	resp, err := s.purchase.Purchase(c.Request.Context(), uid, purchase.Request{
		ProductID:    strings.TrimSpace(req.ProductID),
		Price:        req.Price,
		DailyRevenue: req.DailyRevenue,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"investmentId":    resp.InvestmentID,
		"newBalance":      resp.NewBalance,
		"newDailyRevenue": resp.NewDailyRevenue,
	})
}

func (s *Server) ListInvestments(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var items []investmentdomain.Investment
	err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "investments": items})
}
