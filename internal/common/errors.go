package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateContent means the owner already stores a byte-identical file.
	ErrDuplicateContent = errors.New("file already exists in your storage")
	// ErrNotFound covers both missing records and ownership failures, so a
	// caller cannot probe for other users' files.
	ErrNotFound = errors.New("not found")
	// ErrBackendUnavailable marks a retryable downstream failure.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrInvalidCredentials is returned on failed logins.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput marks a request the caller can correct; its message is
	// safe to show to the user.
	ErrInvalidInput = errors.New("invalid input")
)

// QuotaExceededError carries the remaining space for user-facing messaging.
type QuotaExceededError struct {
	RemainingBytes int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d bytes remaining", e.RemainingBytes)
}

// RiskDeniedError blocks a registration or login attempt. Reasons are kept
// for the audit log only; the user-facing message stays generic.
type RiskDeniedError struct {
	Score   int
	Reasons []string
}

func (e *RiskDeniedError) Error() string {
	return "unable to complete registration"
}

// AuditDetail renders the contributing factors for logging.
func (e *RiskDeniedError) AuditDetail() string {
	return fmt.Sprintf("score=%d reasons=%s", e.Score, strings.Join(e.Reasons, "; "))
}
