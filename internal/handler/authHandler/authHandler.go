package authHandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yukifiles/internal/common"
	"yukifiles/internal/model/fingerprint"
	"yukifiles/internal/model/user"
	"yukifiles/internal/service/riskService"
	"yukifiles/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string, fp *fingerprint.Device, ip, userAgent string) (*user.User, error)
	Login(ctx context.Context, username, password string, fp *fingerprint.Device, ip, userAgent string) (string, string, error)
	RefreshToken(ctx context.Context, userID uuid.UUID, oldRefreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uuid.UUID, accessToken string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, ip, action string, limit int, window time.Duration) (bool, int, time.Duration)
	LogAttempt(ctx context.Context, ip, userAgent string, fp *fingerprint.Device, action string)
}

type Handler struct {
	authService AuthService
	limiter     RateLimiter
	rateLimit   int
	rateWindow  time.Duration
}

func New(service AuthService, limiter RateLimiter, rateLimit int, rateWindow time.Duration) *Handler {
	return &Handler{
		authService: service,
		limiter:     limiter,
		rateLimit:   rateLimit,
		rateWindow:  rateWindow,
	}
}

type RegisterRequest struct {
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Password    string              `json:"password"`
	Fingerprint *fingerprint.Device `json:"fingerprint"`
}

type LoginRequest struct {
	Username    string              `json:"username"`
	Password    string              `json:"password"`
	Fingerprint *fingerprint.Device `json:"fingerprint"`
}

type RefreshRequest struct {
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := c.ClientIP()
	if !h.allowAttempt(c, ip, riskService.ActionRegister, req.Fingerprint) {
		return
	}

	u, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Fingerprint, ip, c.Request.UserAgent())
	if err != nil {
		var denied *common.RiskDeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusForbidden, gin.H{"error": denied.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created",
		"userId":  u.ID.String(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := c.ClientIP()
	if !h.allowAttempt(c, ip, riskService.ActionLogin, req.Fingerprint) {
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, req.Fingerprint, ip, c.Request.UserAgent())
	if err != nil {
		var denied *common.RiskDeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusForbidden, gin.H{"error": denied.Error()})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        accessToken,
		"refreshToken": refreshToken,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	newAccess, newRefresh, err := h.authService.RefreshToken(c.Request.Context(), userID, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        newAccess,
		"refreshToken": newRefresh,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.authService.Logout(c.Request.Context(), userID, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// allowAttempt enforces the per-IP attempt limit and records the attempt.
// A nil limiter or a non-positive limit disables throttling.
func (h *Handler) allowAttempt(c *gin.Context, ip, action string, fp *fingerprint.Device) bool {
	if h.limiter == nil || h.rateLimit <= 0 {
		return true
	}

	allowed, _, reset := h.limiter.CheckRateLimit(c.Request.Context(), ip, action, h.rateLimit, h.rateWindow)
	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
		return false
	}

	h.limiter.LogAttempt(c.Request.Context(), ip, c.Request.UserAgent(), fp, action)
	return true
}
