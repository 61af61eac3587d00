package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// ReferralQR renders the caller's invite link as a PNG QR code.
func (s *Server) ReferralQR(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	account, err := s.accounts.Get(c.Request.Context(), s.db, uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	link := fmt.Sprintf("%s/register?invite=%s", s.cfg.AppBaseURL, account.MyReferralCode)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) ListDownline(c *gin.Context) {
	uid, ok := s.userID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	downline, err := s.referrals.ListDownline(c.Request.Context(), uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "downline": downline})
}
