package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/storage"
	"github.com/UthayakumarDevon/livechatapp/internal/transport/httpdto"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const uploadField = "file"

type UploadHandler struct {
	blobs    storage.BlobStore
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

func NewUploadHandler(blobs storage.BlobStore, maxBytes int64, log *zap.Logger) *UploadHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadHandler{blobs: blobs, maxBytes: maxBytes, log: log, now: time.Now}
}

// Upload stores the multipart field "file" and answers {"url": ...}.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		// multipart framing needs some headroom over the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, chat_errors.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing file field", "INVALID_REQUEST"))
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		h.reject(c, chat_errors.ErrTooLarge)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.reject(c, err)
		return
	}
	defer f.Close()

	key := storage.ObjectKey(h.now(), fh.Filename)
	url, err := h.blobs.Put(c.Request.Context(), key, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		h.log.Error("upload failed", zap.String("key", key), zap.Error(err))
		h.reject(c, err)
		return
	}

	h.log.Info("upload stored", zap.String("key", key), zap.Int64("size", fh.Size))
	c.JSON(http.StatusOK, httpdto.UploadResponse{URL: url})
}

func (h *UploadHandler) reject(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, chat_errors.ErrTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, httpdto.NewErrorResponse(err.Error(), chat_errors.Code(err)))
}
