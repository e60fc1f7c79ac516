package fileRepo_test

import (
	"context"
	"testing"
	"time"

	"yukifiles/internal/common"
	"yukifiles/internal/model/storedfile"
	"yukifiles/internal/repository/fileRepo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileCols = []string{
	"id", "owner_id", "content_hash", "original_name", "mime_type", "size_bytes",
	"storage_key", "share_token", "visibility", "created_at", "updated_at",
}

func newMock(t *testing.T) (pgxmock.PgxConnIface, *fileRepo.FileRepository) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mock.Close(context.Background()) })
	return mock, fileRepo.New(mock)
}

func sampleFile() *storedfile.File {
	now := time.Now().UTC().Truncate(time.Second)
	return &storedfile.File{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		ContentHash:  "deadbeef",
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    2048,
		StorageKey:   "owner/abc123.gz",
		ShareToken:   "sharetoken1",
		Visibility:   storedfile.VisibilityPrivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func fileRow(f *storedfile.File) *pgxmock.Rows {
	return pgxmock.NewRows(fileCols).AddRow(
		f.ID, f.OwnerID, f.ContentHash, f.OriginalName, f.MimeType, f.SizeBytes,
		f.StorageKey, f.ShareToken, f.Visibility, f.CreatedAt, f.UpdatedAt,
	)
}

func TestCreate(t *testing.T) {
	f := sampleFile()

	t.Run("success", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec("INSERT INTO files").
			WithArgs(f.ID, f.OwnerID, f.ContentHash, f.OriginalName, f.MimeType, f.SizeBytes,
				f.StorageKey, f.ShareToken, f.Visibility, f.CreatedAt, f.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(context.Background(), f)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate content hash", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec("INSERT INTO files").
			WithArgs(f.ID, f.OwnerID, f.ContentHash, f.OriginalName, f.MimeType, f.SizeBytes,
				f.StorageKey, f.ShareToken, f.Visibility, f.CreatedAt, f.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "files_owner_content_unique"})

		err := repo.Create(context.Background(), f)
		assert.ErrorIs(t, err, common.ErrDuplicateContent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByOwnerAndHash(t *testing.T) {
	f := sampleFile()

	t.Run("found", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery("FROM files WHERE owner_id = \\$1 AND content_hash = \\$2").
			WithArgs(f.OwnerID, f.ContentHash).
			WillReturnRows(fileRow(f))

		got, err := repo.GetByOwnerAndHash(context.Background(), f.OwnerID, f.ContentHash)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, f.ID, got.ID)
		assert.Equal(t, f.ContentHash, got.ContentHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss returns nil without error", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery("FROM files WHERE owner_id = \\$1 AND content_hash = \\$2").
			WithArgs(f.OwnerID, "otherhash").
			WillReturnRows(pgxmock.NewRows(fileCols))

		got, err := repo.GetByOwnerAndHash(context.Background(), f.OwnerID, "otherhash")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetPublicByShareToken(t *testing.T) {
	f := sampleFile()
	f.Visibility = storedfile.VisibilityPublic

	t.Run("public file resolves", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery("FROM files WHERE share_token = \\$1 AND visibility = 'public'").
			WithArgs(f.ShareToken).
			WillReturnRows(fileRow(f))

		got, err := repo.GetPublicByShareToken(context.Background(), f.ShareToken)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, f.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("private file behaves as a miss", func(t *testing.T) {
		// The visibility filter lives in SQL, so a token pointing at a
		// private file simply returns no rows.
		mock, repo := newMock(t)
		mock.ExpectQuery("FROM files WHERE share_token = \\$1 AND visibility = 'public'").
			WithArgs("privatetoken").
			WillReturnRows(pgxmock.NewRows(fileCols))

		got, err := repo.GetPublicByShareToken(context.Background(), "privatetoken")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByOwner(t *testing.T) {
	mock, repo := newMock(t)
	f1 := sampleFile()
	f2 := sampleFile()
	f2.OwnerID = f1.OwnerID
	f2.ContentHash = "cafebabe"

	rows := pgxmock.NewRows(fileCols).
		AddRow(f1.ID, f1.OwnerID, f1.ContentHash, f1.OriginalName, f1.MimeType, f1.SizeBytes,
			f1.StorageKey, f1.ShareToken, f1.Visibility, f1.CreatedAt, f1.UpdatedAt).
		AddRow(f2.ID, f2.OwnerID, f2.ContentHash, f2.OriginalName, f2.MimeType, f2.SizeBytes,
			f2.StorageKey, f2.ShareToken, f2.Visibility, f2.CreatedAt, f2.UpdatedAt)

	mock.ExpectQuery("FROM files WHERE owner_id = \\$1 ORDER BY created_at DESC").
		WithArgs(f1.OwnerID).
		WillReturnRows(rows)

	files, err := repo.ListByOwner(context.Background(), f1.OwnerID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, f1.ID, files[0].ID)
	assert.Equal(t, f2.ID, files[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	mock, repo := newMock(t)
	fileID := uuid.New()

	mock.ExpectExec("DELETE FROM files").
		WithArgs(fileID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), fileID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRename(t *testing.T) {
	mock, repo := newMock(t)
	fileID := uuid.New()

	mock.ExpectExec("UPDATE files SET original_name").
		WithArgs("renamed.pdf", fileID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Rename(context.Background(), fileID, "renamed.pdf")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetVisibility(t *testing.T) {
	mock, repo := newMock(t)
	fileID := uuid.New()

	mock.ExpectExec("UPDATE files SET visibility").
		WithArgs(storedfile.VisibilityPublic, fileID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetVisibility(context.Background(), fileID, storedfile.VisibilityPublic)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateShareToken(t *testing.T) {
	mock, repo := newMock(t)
	fileID := uuid.New()

	mock.ExpectExec("UPDATE files SET share_token").
		WithArgs("newtoken", fileID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.RotateShareToken(context.Background(), fileID, "newtoken")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
