package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

const (
	defaultMaxFiles = 5
	defaultMaxBytes = 5 << 20
)

// Uploader is the blob store images are written to.
type Uploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, object string) error
}

// File is one image received from a client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Upload is a stored image.
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Service validates and stores images.
type Service interface {
	UploadImages(ctx context.Context, kind enums.MediaKind, files []File) ([]Upload, error)
	Delete(ctx context.Context, key string) error
}

// Limits bounds a single upload request.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

type service struct {
	store  Uploader
	limits Limits
	logg   *logger.Logger
}

// NewService constructs the media service. Zero limits fall back to 5 files of 5MB.
func NewService(store Uploader, limits Limits, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = defaultMaxFiles
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = defaultMaxBytes
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, limits: limits, logg: logg}, nil
}

// UploadImages validates every file before writing any of them. When a write
// fails the objects already written by this call are removed.
func (s *service) UploadImages(ctx context.Context, kind enums.MediaKind, files []File) ([]Upload, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded")
	}
	if len(files) > s.limits.MaxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d files per upload", s.limits.MaxFiles))
	}

	prepared := make([]preparedFile, 0, len(files))
	for i, f := range files {
		p, err := s.prepare(f)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
				WithDetails(map[string]any{"index": i, "file": f.Name})
		}
		prepared = append(prepared, p)
	}

	uploads := make([]Upload, 0, len(prepared))
	for _, p := range prepared {
		key := buildObjectKey(kind, uuid.New(), p.name)
		url, err := s.store.Upload(ctx, key, p.contentType, bytes.NewReader(p.data))
		if err != nil {
			var rollbackErr error
			for _, done := range uploads {
				rollbackErr = multierr.Append(rollbackErr, s.store.Delete(ctx, done.Key))
			}
			if rollbackErr != nil {
				s.logg.Error(ctx, "media.rollback_failed", rollbackErr)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
		}
		uploads = append(uploads, Upload{Key: key, URL: url})
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"kind": kind.String(), "count": len(uploads)}), "media.uploaded")
	return uploads, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "object key required")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

type preparedFile struct {
	name        string
	contentType string
	data        []byte
}

func (s *service) prepare(f File) (preparedFile, error) {
	if f.Open == nil {
		return preparedFile{}, errors.New("file body missing")
	}
	if f.Size > s.limits.MaxBytes {
		return preparedFile{}, fmt.Errorf("%s exceeds %d bytes", f.Name, s.limits.MaxBytes)
	}
	rc, err := f.Open()
	if err != nil {
		return preparedFile{}, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, s.limits.MaxBytes+1))
	if err != nil {
		return preparedFile{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(data)) > s.limits.MaxBytes {
		return preparedFile{}, fmt.Errorf("%s exceeds %d bytes", f.Name, s.limits.MaxBytes)
	}
	if len(data) == 0 {
		return preparedFile{}, fmt.Errorf("%s is empty", f.Name)
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	contentType, err := detectImageType(f.ContentType, head)
	if err != nil {
		return preparedFile{}, err
	}
	return preparedFile{name: f.Name, contentType: contentType, data: data}, nil
}

func buildObjectKey(kind enums.MediaKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("%s/%s/%s", kind, id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
