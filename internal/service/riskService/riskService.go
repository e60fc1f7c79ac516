// Package riskService gates registration and login with an additive abuse
// heuristic. It is a coarse signal, not a security guarantee: weights and the
// threshold are configuration, and when its own lookups fail it fails open so
// a flaky reputation backend never locks legitimate users out.
package riskService

import (
	"context"
	"time"

	"go.uber.org/zap"

	"yukifiles/internal/model/fingerprint"
	"yukifiles/internal/repository/ipLogRepo"
	"yukifiles/internal/reputation"
)

const (
	ActionRegister = "register"
	ActionLogin    = "login"
)

// Weights holds the score contributions and decision bounds. Defaults match
// the tuned production values; override via config for stricter deployments.
type Weights struct {
	VPN                 int           `env:"RISK_WEIGHT_VPN" env-default:"50"`
	Proxy               int           `env:"RISK_WEIGHT_PROXY" env-default:"40"`
	NonResidential      int           `env:"RISK_WEIGHT_NON_RESIDENTIAL" env-default:"30"`
	SameIPAccount       int           `env:"RISK_WEIGHT_SAME_IP" env-default:"40"`
	SimilarFingerprint  int           `env:"RISK_WEIGHT_SIMILAR_FINGERPRINT" env-default:"60"`
	HighActivity        int           `env:"RISK_WEIGHT_HIGH_ACTIVITY" env-default:"20"`
	SimilarityThreshold float64       `env:"RISK_SIMILARITY_THRESHOLD" env-default:"0.8"`
	DenyThreshold       int           `env:"RISK_DENY_THRESHOLD" env-default:"70"`
	ActivityLimit       int           `env:"RISK_ACTIVITY_LIMIT" env-default:"10"`
	ActivityWindow      time.Duration `env:"RISK_ACTIVITY_WINDOW" env-default:"24h"`
}

type Assessment struct {
	IP      string
	Score   int
	Allowed bool
	Reasons []string
}

// AccountHistory supplies registration history for the IP and fingerprint
// signals.
type AccountHistory interface {
	CountByRegistrationIP(ctx context.Context, ip, excludeEmail string) (int, error)
	ListFingerprintsExcept(ctx context.Context, excludeEmail string) ([]*fingerprint.Device, error)
}

// AuditLog records every assessment and answers activity queries.
type AuditLog interface {
	Append(ctx context.Context, e *ipLogRepo.Entry) error
	CountSince(ctx context.Context, ip, action string, since time.Time) (int, error)
	OldestSince(ctx context.Context, ip, action string, since time.Time) (time.Time, error)
}

type RiskService struct {
	weights    Weights
	reputation reputation.Checker
	history    AccountHistory
	audit      AuditLog
	enabled    bool
	logger     *zap.Logger
}

// New builds the scorer. enabled=false (development mode) is resolved once
// here at construction; Assess never consults the environment mid-request.
func New(weights Weights, rep reputation.Checker, history AccountHistory, audit AuditLog, enabled bool, logger *zap.Logger) *RiskService {
	return &RiskService{
		weights:    weights,
		reputation: rep,
		history:    history,
		audit:      audit,
		enabled:    enabled,
		logger:     logger,
	}
}

// Assess scores one registration/login attempt. The result is deterministic
// for fixed inputs. Every call appends an audit row tagged with the action,
// whatever the outcome.
func (s *RiskService) Assess(ctx context.Context, email string, fp *fingerprint.Device, ip, userAgent, action string) *Assessment {
	if !s.enabled {
		a := &Assessment{IP: ip, Score: 0, Allowed: true, Reasons: []string{"risk gate disabled"}}
		s.appendAudit(ctx, a, fp, userAgent, action, nil)
		return a
	}

	score := 0
	var reasons []string

	flags, err := s.reputation.Check(ctx, ip)
	if err != nil {
		return s.failOpen(ctx, "reputation lookup failed", err, fp, ip, userAgent, action)
	}

	if flags.VPN {
		score += s.weights.VPN
		reasons = append(reasons, "VPN detected")
	}
	if flags.Proxy {
		score += s.weights.Proxy
		reasons = append(reasons, "proxy detected")
	}
	if !flags.Residential {
		score += s.weights.NonResidential
		reasons = append(reasons, "non-residential IP")
	}

	sameIP, err := s.history.CountByRegistrationIP(ctx, ip, email)
	if err != nil {
		return s.failOpen(ctx, "same-IP history lookup failed", err, fp, ip, userAgent, action)
	}
	if sameIP >= 1 {
		score += s.weights.SameIPAccount
		reasons = append(reasons, "existing account from same IP")
	}

	others, err := s.history.ListFingerprintsExcept(ctx, email)
	if err != nil {
		return s.failOpen(ctx, "fingerprint history lookup failed", err, fp, ip, userAgent, action)
	}
	for _, other := range others {
		// short-circuits on the first match
		if fingerprint.Similarity(fp, other) > s.weights.SimilarityThreshold {
			score += s.weights.SimilarFingerprint
			reasons = append(reasons, "similar device fingerprint")
			break
		}
	}

	recent, err := s.audit.CountSince(ctx, ip, "", time.Now().Add(-s.weights.ActivityWindow))
	if err != nil {
		return s.failOpen(ctx, "activity lookup failed", err, fp, ip, userAgent, action)
	}
	if recent > s.weights.ActivityLimit {
		score += s.weights.HighActivity
		reasons = append(reasons, "high activity from IP")
	}

	a := &Assessment{
		IP:      ip,
		Score:   score,
		Allowed: score < s.weights.DenyThreshold,
		Reasons: reasons,
	}
	s.appendAudit(ctx, a, fp, userAgent, action, flags)

	s.logger.Info("risk assessment",
		zap.String("action", action),
		zap.String("ip", ip),
		zap.Int("score", a.Score),
		zap.Bool("allowed", a.Allowed),
	)
	return a
}

// failOpen allows the attempt with score 0 when a dependency is down.
// Availability beats strictness for this gate.
func (s *RiskService) failOpen(ctx context.Context, msg string, err error, fp *fingerprint.Device, ip, userAgent, action string) *Assessment {
	s.logger.Warn("risk check degraded, failing open",
		zap.String("reason", msg),
		zap.String("ip", ip),
		zap.Error(err),
	)
	a := &Assessment{IP: ip, Score: 0, Allowed: true, Reasons: []string{"check failed, allowing"}}
	s.appendAudit(ctx, a, fp, userAgent, action, nil)
	return a
}

func (s *RiskService) appendAudit(ctx context.Context, a *Assessment, fp *fingerprint.Device, userAgent, action string, flags *reputation.Flags) {
	e := &ipLogRepo.Entry{
		IPAddress:     a.IP,
		UserAgent:     userAgent,
		Fingerprint:   fp,
		Action:        action,
		RiskScore:     a.Score,
		Allowed:       a.Allowed,
		Reasons:       a.Reasons,
		IsResidential: true,
	}
	if flags != nil {
		e.IsVPN = flags.VPN
		e.IsProxy = flags.Proxy
		e.IsResidential = flags.Residential
	}
	if err := s.audit.Append(ctx, e); err != nil {
		// the audit trail is best-effort; losing a row must not block the user
		s.logger.Warn("failed to append risk audit entry", zap.Error(err))
	}
}

// CheckRateLimit counts attempts for action from ip in the trailing window
// against the audit log. Attempts themselves are logged by the caller via
// LogAttempt, so the window resets on its own as rows age out.
func (s *RiskService) CheckRateLimit(ctx context.Context, ip, action string, limit int, window time.Duration) (allowed bool, remaining int, reset time.Duration) {
	since := time.Now().Add(-window)
	attemptAction := action + "_attempt"

	attempts, err := s.audit.CountSince(ctx, ip, attemptAction, since)
	if err != nil {
		s.logger.Warn("rate limit lookup failed, allowing", zap.Error(err))
		return true, limit, window
	}

	remaining = limit - attempts
	if remaining < 0 {
		remaining = 0
	}

	reset = window
	if attempts > 0 {
		if oldest, err := s.audit.OldestSince(ctx, ip, attemptAction, since); err == nil && !oldest.IsZero() {
			reset = window - time.Since(oldest)
			if reset < 0 {
				reset = 0
			}
		}
	}

	return attempts < limit, remaining, reset
}

// LogAttempt records a rate-limited attempt.
func (s *RiskService) LogAttempt(ctx context.Context, ip, userAgent string, fp *fingerprint.Device, action string) {
	e := &ipLogRepo.Entry{
		IPAddress:     ip,
		UserAgent:     userAgent,
		Fingerprint:   fp,
		Action:        action + "_attempt",
		Allowed:       true,
		IsResidential: true,
	}
	if err := s.audit.Append(ctx, e); err != nil {
		s.logger.Warn("failed to log attempt", zap.Error(err))
	}
}
