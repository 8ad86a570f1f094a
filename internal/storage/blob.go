package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/UthayakumarDevon/livechatapp/config"

	"github.com/google/uuid"
)

// BlobStore stores uploaded bytes and returns the URL clients fetch them by.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// ObjectKey names an upload by its upload time in milliseconds plus a short
// random suffix, keeping the extension of filename.
func ObjectKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], cleanExt(filename))
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// New builds the blob store selected by cfg.Driver.
func New(ctx context.Context, cfg config.BlobConfig) (BlobStore, error) {
	switch cfg.Driver {
	case config.BlobDriverS3:
		return NewS3Store(ctx, cfg.S3)
	case config.BlobDriverLocal, "":
		return NewLocalStore(cfg.UploadDir, cfg.PublicBase)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
