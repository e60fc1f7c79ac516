package quotaRepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"yukifiles/internal/common"
	"yukifiles/internal/model/user"
	"yukifiles/pkg/database/postgres"
)

// QuotaRepository mutates the per-user storage ledger. Reserve is a single
// conditional UPDATE, so the size check and the increment are one atomic
// statement: concurrent uploads near the limit cannot jointly overshoot it.
type QuotaRepository struct {
	conn postgres.Querier
}

func New(conn postgres.Querier) *QuotaRepository {
	return &QuotaRepository{conn: conn}
}

func (r *QuotaRepository) CreateAccount(ctx context.Context, ownerID uuid.UUID, limitBytes int64) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO quota_accounts (owner_id, used_bytes, limit_bytes) VALUES ($1, 0, $2)`,
		ownerID, limitBytes)
	if err != nil {
		return fmt.Errorf("create quota account: %w", err)
	}
	return nil
}

func (r *QuotaRepository) Get(ctx context.Context, ownerID uuid.UUID) (*user.QuotaAccount, error) {
	var q user.QuotaAccount
	err := r.conn.QueryRow(ctx,
		`SELECT owner_id, used_bytes, limit_bytes FROM quota_accounts WHERE owner_id = $1`,
		ownerID).Scan(&q.OwnerID, &q.UsedBytes, &q.LimitBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Reserve increments used_bytes by deltaBytes only if the result stays within
// the limit. On denial the error carries the remaining space for user-facing
// messaging.
func (r *QuotaRepository) Reserve(ctx context.Context, ownerID uuid.UUID, deltaBytes int64) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE quota_accounts
		 SET used_bytes = used_bytes + $2
		 WHERE owner_id = $1 AND used_bytes + $2 <= limit_bytes`,
		ownerID, deltaBytes)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	acct, err := r.Get(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	return &common.QuotaExceededError{RemainingBytes: acct.RemainingBytes()}
}

// Release decreases usage, floored at zero so a delete racing another update
// can never drive the ledger negative.
func (r *QuotaRepository) Release(ctx context.Context, ownerID uuid.UUID, deltaBytes int64) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE quota_accounts
		 SET used_bytes = GREATEST(used_bytes - $2, 0)
		 WHERE owner_id = $1`,
		ownerID, deltaBytes)
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// SetLimit applies a plan upgrade or downgrade. Usage above a lowered limit
// is tolerated; it only blocks further uploads.
func (r *QuotaRepository) SetLimit(ctx context.Context, ownerID uuid.UUID, limitBytes int64) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE quota_accounts SET limit_bytes = $2 WHERE owner_id = $1`,
		ownerID, limitBytes)
	if err != nil {
		return fmt.Errorf("set quota limit: %w", err)
	}
	return nil
}
