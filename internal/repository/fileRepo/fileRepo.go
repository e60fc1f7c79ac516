package fileRepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"yukifiles/internal/common"
	"yukifiles/internal/model/storedfile"
	"yukifiles/pkg/database/postgres"
)

const uniqueViolation = "23505"

const fileColumns = `id, owner_id, content_hash, original_name, mime_type, size_bytes,
		 storage_key, share_token, visibility, created_at, updated_at`

type FileRepository struct {
	conn postgres.Querier
}

func New(conn postgres.Querier) *FileRepository {
	return &FileRepository{conn: conn}
}

// Create inserts the metadata record. The (owner_id, content_hash) unique
// constraint is the airtight dedup check: a concurrent duplicate that passed
// the application-level lookup still fails here.
func (r *FileRepository) Create(ctx context.Context, f *storedfile.File) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO files (`+fileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.OwnerID, f.ContentHash, f.OriginalName, f.MimeType, f.SizeBytes,
		f.StorageKey, f.ShareToken, f.Visibility, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrDuplicateContent
		}
		return fmt.Errorf("create file entry: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, fileID uuid.UUID) (*storedfile.File, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, fileID)
	return scanFile(row)
}

// GetByOwnerAndHash looks up the dedup key.
func (r *FileRepository) GetByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (*storedfile.File, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND content_hash = $2`,
		ownerID, contentHash)
	return scanFile(row)
}

// GetPublicByShareToken resolves a share token to its one public file.
// Private files are not reachable by token; a leaked token behaves as a miss.
func (r *FileRepository) GetPublicByShareToken(ctx context.Context, token string) (*storedfile.File, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE share_token = $1 AND visibility = 'public'`,
		token)
	return scanFile(row)
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*storedfile.File, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*storedfile.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *FileRepository) Delete(ctx context.Context, fileID uuid.UUID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM files WHERE id = $1`, fileID)
	return err
}

func (r *FileRepository) Rename(ctx context.Context, fileID uuid.UUID, newName string) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE files SET original_name = $1, updated_at = now() WHERE id = $2`,
		newName, fileID)
	return err
}

func (r *FileRepository) SetVisibility(ctx context.Context, fileID uuid.UUID, v storedfile.Visibility) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE files SET visibility = $1, updated_at = now() WHERE id = $2`,
		v, fileID)
	return err
}

// RotateShareToken replaces the token, revoking every previously issued link.
func (r *FileRepository) RotateShareToken(ctx context.Context, fileID uuid.UUID, newToken string) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE files SET share_token = $1, updated_at = now() WHERE id = $2`,
		newToken, fileID)
	return err
}

func scanFile(row pgx.Row) (*storedfile.File, error) {
	var f storedfile.File
	err := row.Scan(&f.ID, &f.OwnerID, &f.ContentHash, &f.OriginalName, &f.MimeType,
		&f.SizeBytes, &f.StorageKey, &f.ShareToken, &f.Visibility, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
