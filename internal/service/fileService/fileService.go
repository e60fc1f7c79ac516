package fileService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"yukifiles/internal/common"
	"yukifiles/internal/model/storedfile"
	"yukifiles/internal/model/user"
	"yukifiles/pkg/compress"
	"yukifiles/pkg/hashing"
)

// FileRepository is the metadata store for StoredFile records.
type FileRepository interface {
	Create(ctx context.Context, f *storedfile.File) error
	GetByID(ctx context.Context, fileID uuid.UUID) (*storedfile.File, error)
	GetByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (*storedfile.File, error)
	GetPublicByShareToken(ctx context.Context, token string) (*storedfile.File, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*storedfile.File, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
	Rename(ctx context.Context, fileID uuid.UUID, newName string) error
	SetVisibility(ctx context.Context, fileID uuid.UUID, v storedfile.Visibility) error
	RotateShareToken(ctx context.Context, fileID uuid.UUID, newToken string) error
}

// QuotaLedger authorizes and tracks storage consumption.
type QuotaLedger interface {
	Reserve(ctx context.Context, ownerID uuid.UUID, deltaBytes int64) error
	Release(ctx context.Context, ownerID uuid.UUID, deltaBytes int64) error
	Get(ctx context.Context, ownerID uuid.UUID) (*user.QuotaAccount, error)
}

// BlobStore is the key->bytes backend holding the compressed objects.
type BlobStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type FileService struct {
	fileRepo          FileRepository
	quota             QuotaLedger
	blobs             BlobStore
	defaultVisibility storedfile.Visibility
	logger            *zap.Logger
}

func New(fileRepo FileRepository, quota QuotaLedger, blobs BlobStore, defaultVisibility storedfile.Visibility, logger *zap.Logger) *FileService {
	return &FileService{
		fileRepo:          fileRepo,
		quota:             quota,
		blobs:             blobs,
		defaultVisibility: defaultVisibility,
		logger:            logger,
	}
}

// Upload runs the ingestion pipeline: digest, per-owner dedup check, quota
// reservation, compression, blob write, metadata insert. The reservation
// happens before the write and is rolled back on any later failure, so the
// ledger never drifts from what is actually stored.
func (s *FileService) Upload(ctx context.Context, ownerID uuid.UUID, originalName, mimeType string, data []byte) (*storedfile.File, error) {
	digest := hashing.ContentDigest(data)

	existing, err := s.fileRepo.GetByOwnerAndHash(ctx, ownerID, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: dedup lookup: %w", common.ErrBackendUnavailable, err)
	}
	if existing != nil {
		return nil, common.ErrDuplicateContent
	}

	size := int64(len(data))
	if err := s.quota.Reserve(ctx, ownerID, size); err != nil {
		var quotaErr *common.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: quota reserve: %w", common.ErrBackendUnavailable, err)
	}

	f, err := s.persist(ctx, ownerID, originalName, mimeType, digest, size, data)
	if err != nil {
		if rbErr := s.quota.Release(ctx, ownerID, size); rbErr != nil {
			s.logger.Error("failed to roll back quota reservation",
				zap.String("owner_id", ownerID.String()),
				zap.Int64("bytes", size),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}
	return f, nil
}

func (s *FileService) persist(ctx context.Context, ownerID uuid.UUID, originalName, mimeType, digest string, size int64, data []byte) (*storedfile.File, error) {
	encoded, err := compress.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("compress content: %w", err)
	}

	keySuffix, err := hashing.RandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("generate storage key: %w", err)
	}
	shareToken, err := hashing.RandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	storageKey := fmt.Sprintf("%s/%s.gz", ownerID, keySuffix)

	if err := s.blobs.Upload(ctx, storageKey, bytes.NewReader(encoded), int64(len(encoded))); err != nil {
		return nil, fmt.Errorf("%w: blob upload: %w", common.ErrBackendUnavailable, err)
	}

	now := time.Now()
	f := &storedfile.File{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		ContentHash:  digest,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    size,
		StorageKey:   storageKey,
		ShareToken:   shareToken,
		Visibility:   s.defaultVisibility,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.fileRepo.Create(ctx, f); err != nil {
		if delErr := s.blobs.Delete(ctx, storageKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned blob",
				zap.String("storage_key", storageKey),
				zap.Error(delErr),
			)
		}
		if errors.Is(err, common.ErrDuplicateContent) {
			// a concurrent upload of the same bytes won the unique constraint
			return nil, err
		}
		return nil, fmt.Errorf("%w: create file entry: %w", common.ErrBackendUnavailable, err)
	}
	return f, nil
}

// Delete removes the file. The blob removal is best-effort: an orphaned blob
// is acceptable, metadata pointing at nothing is not, so the record goes even
// when the blob delete fails. Quota is released last, floored at zero.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error {
	f, err := s.getOwned(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
		s.logger.Warn("failed to remove blob, leaving orphan",
			zap.String("storage_key", f.StorageKey),
			zap.Error(err),
		)
	}
	if err := s.fileRepo.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("%w: delete file entry: %w", common.ErrBackendUnavailable, err)
	}
	if err := s.quota.Release(ctx, ownerID, f.SizeBytes); err != nil {
		return fmt.Errorf("%w: release quota: %w", common.ErrBackendUnavailable, err)
	}
	return nil
}

// Download returns the file metadata and the decoded content stream for its
// owner.
func (s *FileService) Download(ctx context.Context, ownerID, fileID uuid.UUID) (*storedfile.File, io.ReadCloser, error) {
	f, err := s.getOwned(ctx, ownerID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.openBlob(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// DownloadByShareToken is the unauthenticated retrieval path. Only the one
// public file matching the token is reachable; everything else, including
// private files with a leaked token, is a plain NotFound.
func (s *FileService) DownloadByShareToken(ctx context.Context, token string) (*storedfile.File, io.ReadCloser, error) {
	f, err := s.fileRepo.GetPublicByShareToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: share token lookup: %w", common.ErrBackendUnavailable, err)
	}
	if f == nil || !f.IsPublic() {
		return nil, nil, common.ErrNotFound
	}
	rc, err := s.openBlob(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

func (s *FileService) List(ctx context.Context, ownerID uuid.UUID) ([]*storedfile.File, error) {
	files, err := s.fileRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %w", common.ErrBackendUnavailable, err)
	}
	return files, nil
}

func (s *FileService) Quota(ctx context.Context, ownerID uuid.UUID) (*user.QuotaAccount, error) {
	return s.quota.Get(ctx, ownerID)
}

func (s *FileService) Rename(ctx context.Context, ownerID, fileID uuid.UUID, newName string) error {
	if _, err := s.getOwned(ctx, ownerID, fileID); err != nil {
		return err
	}
	if err := s.fileRepo.Rename(ctx, fileID, newName); err != nil {
		return fmt.Errorf("%w: rename file: %w", common.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *FileService) SetVisibility(ctx context.Context, ownerID, fileID uuid.UUID, v storedfile.Visibility) error {
	if v != storedfile.VisibilityPublic && v != storedfile.VisibilityPrivate {
		return fmt.Errorf("%w: unknown visibility %q", common.ErrInvalidInput, v)
	}
	if _, err := s.getOwned(ctx, ownerID, fileID); err != nil {
		return err
	}
	if err := s.fileRepo.SetVisibility(ctx, fileID, v); err != nil {
		return fmt.Errorf("%w: set visibility: %w", common.ErrBackendUnavailable, err)
	}
	return nil
}

// RotateShareToken issues a fresh token, revoking every link minted with the
// old one.
func (s *FileService) RotateShareToken(ctx context.Context, ownerID, fileID uuid.UUID) (string, error) {
	if _, err := s.getOwned(ctx, ownerID, fileID); err != nil {
		return "", err
	}
	newToken, err := hashing.RandomHex(16)
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	if err := s.fileRepo.RotateShareToken(ctx, fileID, newToken); err != nil {
		return "", fmt.Errorf("%w: rotate share token: %w", common.ErrBackendUnavailable, err)
	}
	return newToken, nil
}

// getOwned fetches the file and enforces ownership. A missing file and
// someone else's file are the same NotFound to the caller.
func (s *FileService) getOwned(ctx context.Context, ownerID, fileID uuid.UUID) (*storedfile.File, error) {
	f, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: get file: %w", common.ErrBackendUnavailable, err)
	}
	if f == nil || f.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	return f, nil
}

func (s *FileService) openBlob(ctx context.Context, f *storedfile.File) (io.ReadCloser, error) {
	raw, err := s.blobs.Download(ctx, f.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: blob download: %w", common.ErrBackendUnavailable, err)
	}
	decoded, err := compress.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("decode blob %s: %w", f.StorageKey, err)
	}
	return &blobReader{decoded: decoded, raw: raw}, nil
}

// blobReader closes both the gzip layer and the underlying object stream.
type blobReader struct {
	decoded io.ReadCloser
	raw     io.ReadCloser
}

func (r *blobReader) Read(p []byte) (int, error) { return r.decoded.Read(p) }

func (r *blobReader) Close() error {
	err := r.decoded.Close()
	if rawErr := r.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}
