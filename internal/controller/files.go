package controller

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/storage"
	"order-lifecycle-service/internal/upload"

	"github.com/gin-gonic/gin"
)

// FileStore lo implementa storage.GridFSStore.
type FileStore interface {
	Put(ctx context.Context, name, contentType, category string, r io.Reader) (*storage.FileInfo, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, *storage.FileInfo, error)
	Delete(ctx context.Context, fileID string) error
}

type FileController struct {
	Store     FileStore
	PublicURL string
	MaxBytes  int64
}

func NewFileController(store FileStore, publicURL string, maxBytes int64) *FileController {
	return &FileController{Store: store, PublicURL: strings.TrimRight(publicURL, "/"), MaxBytes: maxBytes}
}

// POST /files - multipart {file, category}
func (ctl *FileController) Upload(c *gin.Context) {
	// margen para los campos del formulario
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctl.MaxBytes+1<<20)

	category := upload.Category(c.PostForm("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown upload category", Field: "category"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing file", Field: "file"})
		return
	}
	if fh.Size > ctl.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: fmt.Sprintf("file larger than %d bytes", ctl.MaxBytes), Field: "file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := ctl.Store.Put(c.Request.Context(), fh.Filename, contentType, string(category), f)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{
		URL:         ctl.PublicURL + "/files/" + info.ID,
		FileID:      info.ID,
		Category:    string(category),
		Size:        info.Size,
		ContentType: contentType,
	})
}

// GET /files/:fileId
func (ctl *FileController) Download(c *gin.Context) {
	rc, info, err := ctl.Store.Open(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}

// DELETE /files/:fileId - idempotente
func (ctl *FileController) Delete(c *gin.Context) {
	id := c.Param("fileId")
	if err := ctl.Store.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	log.Printf("[Files] archivo %s borrado por %s", id, c.GetString(middleware.KeyUserID))
	c.Status(http.StatusNoContent)
}
