// Package ipLogRepo is the append-only audit trail behind the risk scorer
// and the login/registration rate limit.
package ipLogRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"yukifiles/internal/model/fingerprint"
	"yukifiles/pkg/database/postgres"
)

type Entry struct {
	UserID        *uuid.UUID
	IPAddress     string
	UserAgent     string
	Fingerprint   *fingerprint.Device
	Action        string
	RiskScore     int
	Allowed       bool
	Reasons       []string
	IsVPN         bool
	IsProxy       bool
	IsResidential bool
}

type IPLogRepository struct {
	conn postgres.Querier
}

func New(conn postgres.Querier) *IPLogRepository {
	return &IPLogRepository{conn: conn}
}

// Append writes one audit row. Every assessment lands here regardless of
// outcome; the detailed reasons never leave this table.
func (r *IPLogRepository) Append(ctx context.Context, e *Entry) error {
	var fp []byte
	if e.Fingerprint != nil {
		b, err := json.Marshal(e.Fingerprint)
		if err != nil {
			return fmt.Errorf("marshal fingerprint: %w", err)
		}
		fp = b
	}
	_, err := r.conn.Exec(ctx,
		`INSERT INTO ip_logs (user_id, ip_address, user_agent, device_fingerprint,
		                      action, risk_score, allowed, reasons, is_vpn, is_proxy, is_residential)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.UserID, e.IPAddress, e.UserAgent, fp,
		e.Action, e.RiskScore, e.Allowed, strings.Join(e.Reasons, "; "),
		e.IsVPN, e.IsProxy, e.IsResidential)
	if err != nil {
		return fmt.Errorf("append ip log: %w", err)
	}
	return nil
}

// CountSince counts log rows from ip after since, optionally filtered by
// action ("" matches all).
func (r *IPLogRepository) CountSince(ctx context.Context, ip, action string, since time.Time) (int, error) {
	var (
		n   int
		err error
	)
	if action == "" {
		err = r.conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM ip_logs WHERE ip_address = $1 AND created_at >= $2`,
			ip, since).Scan(&n)
	} else {
		err = r.conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM ip_logs WHERE ip_address = $1 AND action = $2 AND created_at >= $3`,
			ip, action, since).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count ip logs: %w", err)
	}
	return n, nil
}

// OldestSince returns the timestamp of the earliest matching row in the
// window, for computing when a rate-limit window resets.
func (r *IPLogRepository) OldestSince(ctx context.Context, ip, action string, since time.Time) (time.Time, error) {
	var ts *time.Time
	err := r.conn.QueryRow(ctx,
		`SELECT MIN(created_at) FROM ip_logs
		 WHERE ip_address = $1 AND action = $2 AND created_at >= $3`,
		ip, action, since).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("oldest ip log: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}
