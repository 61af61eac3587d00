package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/angedjimenou/investapp/internal/identity"
	"github.com/angedjimenou/investapp/internal/onboarding"
)

type registerRequest struct {
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Password    string `json:"password"`
	InviteCode  string `json:"inviteCode"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.onboarding.Register(c.Request.Context(), onboarding.Request{
		Phone:       strings.TrimSpace(req.Phone),
		CountryCode: strings.TrimSpace(req.CountryCode),
		Password:    req.Password,
		InviteCode:  strings.TrimSpace(req.InviteCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.identity.IssueToken(resp.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"userId":         resp.UserID,
		"myReferralCode": resp.MyReferralCode,
		"idToken":        token,
	})
}

type loginRequest struct {
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Password    string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	handle := identity.LoginHandle(strings.TrimSpace(req.CountryCode), strings.TrimSpace(req.Phone))
	uid, err := s.identity.Authenticate(c.Request.Context(), handle, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, err := s.identity.IssueToken(uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userId":  uid,
		"idToken": token,
	})
}

func (s *Server) GetProfile(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"success": true, "user": account})
}
