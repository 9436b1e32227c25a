// Package storage uploads user files to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
	"github.com/jisr-market/jisr-backend/internal/platform/telemetry"
)

// Kind selects the allow-list an upload is checked against.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindAny      Kind = "any"
)

var imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var documentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (k Kind) allows(m *mimetype.MIME) bool {
	var allowed []string
	switch k {
	case KindImage:
		allowed = imageTypes
	case KindDocument:
		allowed = append(append([]string{}, documentTypes...), imageTypes...)
	default:
		allowed = append(append([]string{"text/plain", "application/zip"}, documentTypes...), imageTypes...)
	}
	for _, a := range allowed {
		if m.Is(a) {
			return true
		}
	}
	return false
}

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsImage reports whether the object was sniffed as an image.
func (o Object) IsImage() bool { return strings.HasPrefix(o.ContentType, "image/") }

// Uploader is what the domain modules depend on.
type Uploader interface {
	Upload(ctx context.Context, folder string, kind Kind, r io.Reader) (Object, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) string
}

// Backend is the subset of the object store client used here.
type Backend interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

type uploader struct {
	backend   Backend
	publicURL string
	maxBytes  int64
	logger    *zap.Logger
}

func NewUploader(backend Backend, publicURL string, maxBytes int64, logger *zap.Logger) Uploader {
	return &uploader{
		backend:   backend,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

func (u *uploader) Upload(ctx context.Context, folder string, kind Kind, r io.Reader) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		telemetry.RecordUpload(string(kind), false)
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		telemetry.RecordUpload(string(kind), false)
		return Object{}, apperr.Invalid("file is empty")
	}
	if int64(len(data)) > u.maxBytes {
		telemetry.RecordUpload(string(kind), false)
		return Object{}, apperr.Invalid("file exceeds %d bytes", u.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !kind.allows(mt) {
		telemetry.RecordUpload(string(kind), false)
		return Object{}, apperr.Invalid("file type %s is not allowed", mt.String())
	}

	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	key := path.Join(folder, uuid.NewString()+mt.Extension())
	if err := u.backend.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		telemetry.RecordUpload(string(kind), false)
		return Object{}, fmt.Errorf("store %s: %w", key, err)
	}

	telemetry.RecordUpload(string(kind), true)
	u.logger.Debug("file uploaded", zap.String("key", key), zap.String("content_type", contentType), zap.Int("size", len(data)))
	return Object{
		Key:         key,
		URL:         u.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (u *uploader) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := u.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (u *uploader) PublicURL(key string) string {
	return u.publicURL + "/" + key
}

// KeyFromURL recovers the object key from a URL produced by PublicURL. Foreign
// URLs yield "".
func (u *uploader) KeyFromURL(url string) string {
	key, ok := strings.CutPrefix(url, u.publicURL+"/")
	if !ok {
		return ""
	}
	return key
}
