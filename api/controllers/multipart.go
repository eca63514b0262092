package controllers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/threadhouse-backend/internal/media"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

// multipartOverhead covers form fields and part headers around the files.
const multipartOverhead = 1 << 20

// readMultipartFiles parses a multipart form and returns the files under
// field. Content checks are left to the media service.
func readMultipartFiles(w http.ResponseWriter, r *http.Request, field string, maxFiles int, maxBytes int64) ([]media.File, error) {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	headers := r.MultipartForm.File[field]
	switch {
	case len(headers) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded").WithDetails(map[string]any{"field": field})
	case len(headers) > maxFiles:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many files").WithDetails(map[string]any{"field": field, "max": maxFiles})
	}

	files := make([]media.File, 0, len(headers))
	for _, h := range headers {
		files = append(files, fileFromHeader(h))
	}
	return files, nil
}

func fileFromHeader(h *multipart.FileHeader) media.File {
	return media.File{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}
