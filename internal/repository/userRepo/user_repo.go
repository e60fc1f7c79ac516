package userRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"yukifiles/internal/model/fingerprint"
	"yukifiles/internal/model/user"
	"yukifiles/pkg/database/postgres"
)

type UserRepo struct {
	conn postgres.Querier
}

func New(conn postgres.Querier) *UserRepo {
	return &UserRepo{conn: conn}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	fp, err := marshalFingerprint(u.Fingerprint)
	if err != nil {
		return err
	}
	_, err = r.conn.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, registration_ip, device_fingerprint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.RegistrationIP, fp, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, username, email, password_hash, registration_ip, device_fingerprint, created_at
		 FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, username, email, password_hash, registration_ip, device_fingerprint, created_at
		 FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT id, username, email, password_hash, registration_ip, device_fingerprint, created_at
		 FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// CountByRegistrationIP counts accounts registered from ip, excluding the
// email currently being checked.
func (r *UserRepo) CountByRegistrationIP(ctx context.Context, ip, excludeEmail string) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE registration_ip = $1 AND email <> $2`,
		ip, excludeEmail).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by ip: %w", err)
	}
	return n, nil
}

// ListFingerprintsExcept returns the stored device fingerprints of every
// other user, for pairwise similarity comparison.
func (r *UserRepo) ListFingerprintsExcept(ctx context.Context, excludeEmail string) ([]*fingerprint.Device, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT device_fingerprint FROM users
		 WHERE email <> $1 AND device_fingerprint IS NOT NULL`, excludeEmail)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []*fingerprint.Device
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var fp fingerprint.Device
		if err := json.Unmarshal(raw, &fp); err != nil {
			// a malformed record should not poison the whole scan
			continue
		}
		fps = append(fps, &fp)
	}
	return fps, rows.Err()
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u   user.User
		raw []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RegistrationIP, &raw, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var fp fingerprint.Device
		if err := json.Unmarshal(raw, &fp); err == nil {
			u.Fingerprint = &fp
		}
	}
	return &u, nil
}

func marshalFingerprint(fp *fingerprint.Device) ([]byte, error) {
	if fp == nil {
		return nil, nil
	}
	b, err := json.Marshal(fp)
	if err != nil {
		return nil, fmt.Errorf("marshal fingerprint: %w", err)
	}
	return b, nil
}
