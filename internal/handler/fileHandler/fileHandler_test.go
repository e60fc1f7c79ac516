package fileHandler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yukifiles/internal/common"
	"yukifiles/internal/handler/fileHandler"
	"yukifiles/internal/model/storedfile"
	"yukifiles/internal/model/user"
	"yukifiles/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct {
	uploadErr        error
	listErr          error
	setVisibilityErr error
	sharedFile       *storedfile.File
	sharedData       string
	sharedErr        error
}

func (s *stubService) Upload(ctx context.Context, ownerID uuid.UUID, originalName, mimeType string, data []byte) (*storedfile.File, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	return &storedfile.File{ID: uuid.New(), OwnerID: ownerID, OriginalName: originalName, MimeType: mimeType, SizeBytes: int64(len(data)), CreatedAt: time.Now(), UpdatedAt: time.Now()}, nil
}

func (s *stubService) Download(ctx context.Context, ownerID, fileID uuid.UUID) (*storedfile.File, io.ReadCloser, error) {
	return nil, nil, common.ErrNotFound
}

func (s *stubService) DownloadByShareToken(ctx context.Context, token string) (*storedfile.File, io.ReadCloser, error) {
	if s.sharedErr != nil {
		return nil, nil, s.sharedErr
	}
	return s.sharedFile, io.NopCloser(strings.NewReader(s.sharedData)), nil
}

func (s *stubService) List(ctx context.Context, ownerID uuid.UUID) ([]*storedfile.File, error) {
	return nil, s.listErr
}

func (s *stubService) Quota(ctx context.Context, ownerID uuid.UUID) (*user.QuotaAccount, error) {
	return &user.QuotaAccount{OwnerID: ownerID, UsedBytes: 0, LimitBytes: 1000}, nil
}

func (s *stubService) Delete(ctx context.Context, ownerID, fileID uuid.UUID) error { return nil }

func (s *stubService) Rename(ctx context.Context, ownerID, fileID uuid.UUID, newName string) error {
	return nil
}

func (s *stubService) SetVisibility(ctx context.Context, ownerID, fileID uuid.UUID, v storedfile.Visibility) error {
	return s.setVisibilityErr
}

func (s *stubService) RotateShareToken(ctx context.Context, ownerID, fileID uuid.UUID) (string, error) {
	return "rotated", nil
}

func newRouter(svc *stubService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := fileHandler.New(svc, 1<<20, zap.NewNop())

	r := gin.New()
	r.GET("/s/:token", h.SharedDownload)

	authed := r.Group("/api", func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) })
	authed.POST("/upload", h.Upload)
	authed.GET("/files", h.List)
	authed.PUT("/files/:id/visibility", h.SetVisibility)
	return r
}

func TestList_InternalErrorStaysServerSide(t *testing.T) {
	svc := &stubService{listErr: errors.New("gzip: short write on object abc123")}
	router := newRouter(svc, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "short write", "internal detail must not reach the client")
}

func TestSetVisibility_InvalidValue(t *testing.T) {
	svc := &stubService{setVisibilityErr: common.ErrInvalidInput}
	router := newRouter(svc, uuid.New())

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"visibility":"friends-only"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/files/"+uuid.NewString()+"/visibility", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrInvalidInput.Error())
}

func TestUpload_QuotaExceeded(t *testing.T) {
	svc := &stubService{uploadErr: &common.QuotaExceededError{RemainingBytes: 100}}
	router := newRouter(svc, uuid.New())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = part.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Contains(t, w.Body.String(), `"remainingBytes":100`)
}

func TestSharedDownload(t *testing.T) {
	svc := &stubService{
		sharedFile: &storedfile.File{OriginalName: "notes.txt", MimeType: "text/plain"},
		sharedData: "shared content",
	}
	router := newRouter(svc, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/s/sometoken", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shared content", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestSharedDownload_UnknownToken(t *testing.T) {
	svc := &stubService{sharedErr: common.ErrNotFound}
	router := newRouter(svc, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/s/expiredtoken", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
