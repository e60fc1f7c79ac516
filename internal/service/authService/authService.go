package authService

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"yukifiles/internal/common"
	"yukifiles/internal/model/fingerprint"
	"yukifiles/internal/model/user"
	"yukifiles/internal/service/riskService"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	refreshTokenExpireTime = 7 * 24 * time.Hour
	jwtTokenExpireTime     = 3 * time.Hour
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

type QuotaAccounts interface {
	CreateAccount(ctx context.Context, ownerID uuid.UUID, limitBytes int64) error
}

// RiskGate is the anti-clone heuristic consulted before account creation and
// login. Its decision is the only thing the auth flow needs; scoring details
// stay in the audit log.
type RiskGate interface {
	Assess(ctx context.Context, email string, fp *fingerprint.Device, ip, userAgent, action string) *riskService.Assessment
}

type RefreshTokens interface {
	SaveToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	DeleteToken(ctx context.Context, userID uuid.UUID) error
	ValidateToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)
}

type TokenBlacklist interface {
	AddToken(ctx context.Context, token string, expiresAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

type AuthService struct {
	userRepo          UserRepository
	quota             QuotaAccounts
	risk              RiskGate
	refreshRepo       RefreshTokens
	blacklistRepo     TokenBlacklist
	jwtSecretKey      string
	defaultQuotaLimit int64
}

func New(userRepo UserRepository, quota QuotaAccounts, risk RiskGate, refreshRepo RefreshTokens, blacklistRepo TokenBlacklist, jwtSecret string, defaultQuotaLimit int64) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		quota:             quota,
		risk:              risk,
		refreshRepo:       refreshRepo,
		blacklistRepo:     blacklistRepo,
		jwtSecretKey:      jwtSecret,
		defaultQuotaLimit: defaultQuotaLimit,
	}
}

// Register creates the account if the risk gate allows it, then provisions
// the quota ledger with the default plan limit.
func (s *AuthService) Register(ctx context.Context, username, email, password string, fp *fingerprint.Device, ip, userAgent string) (*user.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("invalid format")
	}
	if !emailRegex.MatchString(email) {
		return nil, fmt.Errorf("invalid email format")
	}

	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("email already exists")
	}
	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, fmt.Errorf("username already taken")
	}

	assessment := s.risk.Assess(ctx, email, fp, ip, userAgent, riskService.ActionRegister)
	if !assessment.Allowed {
		return nil, &common.RiskDeniedError{Score: assessment.Score, Reasons: assessment.Reasons}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		PasswordHash:   string(hashedPassword),
		RegistrationIP: ip,
		Fingerprint:    fp,
		CreatedAt:      time.Now(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := s.quota.CreateAccount(ctx, u.ID, s.defaultQuotaLimit); err != nil {
		return nil, fmt.Errorf("failed to create quota account: %w", err)
	}
	return u, nil
}

// Login verifies credentials and the risk gate, then issues an access and a
// refresh token.
func (s *AuthService) Login(ctx context.Context, username, password string, fp *fingerprint.Device, ip, userAgent string) (string, string, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil || u == nil {
		return "", "", common.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", "", common.ErrInvalidCredentials
	}

	assessment := s.risk.Assess(ctx, u.Email, fp, ip, userAgent, riskService.ActionLogin)
	if !assessment.Allowed {
		return "", "", &common.RiskDeniedError{Score: assessment.Score, Reasons: assessment.Reasons}
	}

	accessToken, err := s.generateJWT(u)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.generateRefreshToken(ctx, u.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (s *AuthService) generateJWT(u *user.User) (string, error) {
	payload := jwt.RegisteredClaims{
		Subject:   u.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtTokenExpireTime)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString([]byte(s.jwtSecretKey))
}

// GetUIDByToken resolves an access token to its subject, rejecting
// blacklisted, malformed, and expired tokens.
func (s *AuthService) GetUIDByToken(ctx context.Context, token string) (uuid.UUID, bool) {
	blacklisted, err := s.blacklistRepo.IsTokenBlacklisted(ctx, token)
	if err != nil || blacklisted {
		return uuid.Nil, false
	}

	payload := &jwt.RegisteredClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil || !parsedToken.Valid {
		return uuid.Nil, false
	}

	uid, err := uuid.Parse(payload.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return uid, true
}

func (s *AuthService) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	refreshToken := uuid.NewString()
	if err := s.refreshRepo.SaveToken(ctx, userID, refreshToken, refreshTokenExpireTime); err != nil {
		return "", err
	}
	return refreshToken, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, accessToken string) error {
	if err := s.refreshRepo.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	payload := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(accessToken, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	}); err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if err := s.blacklistRepo.AddToken(ctx, accessToken, payload.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (s *AuthService) RefreshToken(ctx context.Context, userID uuid.UUID, oldRefreshToken string) (string, string, error) {
	valid, err := s.refreshRepo.ValidateToken(ctx, userID, oldRefreshToken)
	if err != nil || !valid {
		return "", "", errors.New("expired refresh token")
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return "", "", common.ErrNotFound
	}

	newAccessToken, err := s.generateJWT(u)
	if err != nil {
		return "", "", err
	}
	newRefreshToken, err := s.generateRefreshToken(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return newAccessToken, newRefreshToken, nil
}
