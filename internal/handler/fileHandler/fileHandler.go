package fileHandler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"yukifiles/internal/common"
	"yukifiles/internal/model/storedfile"
	"yukifiles/internal/model/user"
	"yukifiles/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FileService interface {
	Upload(ctx context.Context, ownerID uuid.UUID, originalName, mimeType string, data []byte) (*storedfile.File, error)
	Download(ctx context.Context, ownerID, fileID uuid.UUID) (*storedfile.File, io.ReadCloser, error)
	DownloadByShareToken(ctx context.Context, token string) (*storedfile.File, io.ReadCloser, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*storedfile.File, error)
	Quota(ctx context.Context, ownerID uuid.UUID) (*user.QuotaAccount, error)
	Delete(ctx context.Context, ownerID, fileID uuid.UUID) error
	Rename(ctx context.Context, ownerID, fileID uuid.UUID, newName string) error
	SetVisibility(ctx context.Context, ownerID, fileID uuid.UUID, v storedfile.Visibility) error
	RotateShareToken(ctx context.Context, ownerID, fileID uuid.UUID) (string, error)
}

type Handler struct {
	fileService   FileService
	maxUploadSize int64
	logger        *zap.Logger
}

func New(service FileService, maxUploadSize int64, logger *zap.Logger) *Handler {
	return &Handler{fileService: service, maxUploadSize: maxUploadSize, logger: logger}
}

func (h *Handler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("no file provided: %v", err)})
		return
	}
	if h.maxUploadSize > 0 && uploadedFile.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := uploadedFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	mimeType := uploadedFile.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	f, err := h.fileService.Upload(c.Request.Context(), userID, uploadedFile.Filename, mimeType, data)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, fileJSON(f))
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	files, err := h.fileService.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(files))
	for _, f := range files {
		out = append(out, fileJSON(f))
	}

	resp := gin.H{"files": out}
	if acct, err := h.fileService.Quota(c.Request.Context(), userID); err == nil {
		resp["quota"] = gin.H{
			"usedBytes":      acct.UsedBytes,
			"limitBytes":     acct.LimitBytes,
			"remainingBytes": acct.RemainingBytes(),
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Download(c *gin.Context) {
	userID, fileID, ok := h.ownedFileID(c)
	if !ok {
		return
	}

	f, reader, err := h.fileService.Download(c.Request.Context(), userID, fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer reader.Close()

	streamFile(c, f, reader)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, fileID, ok := h.ownedFileID(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), userID, fileID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

type RenameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Rename(c *gin.Context) {
	userID, fileID, ok := h.ownedFileID(c)
	if !ok {
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := h.fileService.Rename(c.Request.Context(), userID, fileID, req.Name); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file renamed"})
}

type VisibilityRequest struct {
	Visibility string `json:"visibility"`
}

func (h *Handler) SetVisibility(c *gin.Context) {
	userID, fileID, ok := h.ownedFileID(c)
	if !ok {
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.fileService.SetVisibility(c.Request.Context(), userID, fileID, storedfile.Visibility(req.Visibility))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "visibility updated"})
}

func (h *Handler) RotateShareToken(c *gin.Context) {
	userID, fileID, ok := h.ownedFileID(c)
	if !ok {
		return
	}

	token, err := h.fileService.RotateShareToken(c.Request.Context(), userID, fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shareToken": token})
}

// SharedDownload serves a public file by its share token without
// authentication.
func (h *Handler) SharedDownload(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "share token is required"})
		return
	}

	f, reader, err := h.fileService.DownloadByShareToken(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer reader.Close()

	streamFile(c, f, reader)
}

func (h *Handler) ownedFileID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, uuid.Nil, false
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return uuid.Nil, uuid.Nil, false
	}

	return userID, fileID, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var quotaErr *common.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusInsufficientStorage, gin.H{
			"error":          quotaErr.Error(),
			"remainingBytes": quotaErr.RemainingBytes,
		})
	case errors.Is(err, common.ErrDuplicateContent):
		c.JSON(http.StatusConflict, gin.H{"error": common.ErrDuplicateContent.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, common.ErrBackendUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		// anything else is an internal failure; its detail stays server-side
		h.logger.Error("file operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func fileJSON(f *storedfile.File) gin.H {
	return gin.H{
		"id":          f.ID.String(),
		"name":        f.OriginalName,
		"mimeType":    f.MimeType,
		"size":        f.SizeBytes,
		"contentHash": f.ContentHash,
		"shareToken":  f.ShareToken,
		"visibility":  string(f.Visibility),
		"uploaded":    f.CreatedAt.Format(time.RFC3339),
		"updated":     f.UpdatedAt.Format(time.RFC3339),
	}
}

func streamFile(c *gin.Context, f *storedfile.File, reader io.Reader) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalName))
	c.Header("Content-Type", f.MimeType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers are already sent, nothing useful left to report.
		c.Abort()
	}
}
