package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zentexa/wabot-platform/pkg/logging"
)

// Category buckets inbound attachments by their MIME type.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
)

var (
	ErrEmptyPayload = errors.New("media: empty payload")
	ErrTooLarge     = errors.New("media: payload exceeds size limit")
)

// Classify maps a MIME type onto a Category. Anything that is not
// image/audio/video is treated as a document, including unknown types.
func Classify(mimeType string) Category {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage
	case strings.HasPrefix(mt, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mt, "video/"):
		return CategoryVideo
	default:
		return CategoryDocument
	}
}

// FileInfo describes a stored attachment.
type FileInfo struct {
	Category   Category  `json:"category"`
	Size       int64     `json:"size"`
	Location   string    `json:"location"`
	StoredName string    `json:"storedName"`
	MimeType   string    `json:"mimeType"`
	StoredAt   time.Time `json:"storedAt"`
}

// Backend persists attachment bytes. Implementations: local disk, S3.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (location string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	PurgeOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Relay receives inbound attachments, classifies them and hands the bytes
// to the configured backend under a tenant-scoped key.
type Relay struct {
	backend Backend
	maxSize int64
	logger  *logging.Logger
}

func NewRelay(backend Backend, maxSize int64, logger *logging.Logger) *Relay {
	if backend == nil {
		panic("media: nil backend")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{backend: backend, maxSize: maxSize, logger: logger}
}

// Store persists an inbound attachment and returns its metadata. The stored
// name is always freshly generated; the original name only contributes its
// extension so sender-controlled paths never reach the backend.
func (r *Relay) Store(ctx context.Context, tenantID string, originalName string, mimeType string, data []byte) (FileInfo, error) {
	if len(data) == 0 {
		return FileInfo{}, ErrEmptyPayload
	}
	if r.maxSize > 0 && int64(len(data)) > r.maxSize {
		return FileInfo{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	stored := uuid.NewString()
	if ext := safeExt(originalName); ext != "" {
		stored += ext
	}
	key := tenantID + "/" + stored

	loc, err := r.backend.Put(ctx, key, data, mimeType)
	if err != nil {
		return FileInfo{}, fmt.Errorf("media: store %s: %w", key, err)
	}

	info := FileInfo{
		Category:   Classify(mimeType),
		Size:       int64(len(data)),
		Location:   loc,
		StoredName: stored,
		MimeType:   mimeType,
		StoredAt:   time.Now().UTC(),
	}
	r.logger.Info("stored attachment",
		"tenant_id", tenantID,
		"category", string(info.Category),
		"size", info.Size,
		"stored_name", stored,
	)
	return info, nil
}

// Fetch returns the bytes for a previously stored attachment key.
func (r *Relay) Fetch(ctx context.Context, tenantID, storedName string) ([]byte, error) {
	data, err := r.backend.Get(ctx, tenantID+"/"+storedName)
	if err != nil {
		return nil, fmt.Errorf("media: fetch %s/%s: %w", tenantID, storedName, err)
	}
	return data, nil
}

// SweepLoop purges files past the retention age until ctx is cancelled.
// Purge failures are logged and retried on the next tick.
func (r *Relay) SweepLoop(ctx context.Context, age, interval time.Duration) {
	if age <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.backend.PurgeOlderThan(ctx, age)
			if err != nil {
				r.logger.Error("media sweep failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("purged expired attachments", "count", n)
			}
		}
	}
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
