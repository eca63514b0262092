package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type memoryStore struct {
	objects map[string]string
	failOn  int
	uploads int
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]string{}}
}

func (m *memoryStore) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	m.uploads++
	if m.failOn > 0 && m.uploads == m.failOn {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[object] = contentType + ":" + string(data)
	return "https://cdn.example.com/" + object, nil
}

func (m *memoryStore) Delete(ctx context.Context, object string) error {
	m.deleted = append(m.deleted, object)
	delete(m.objects, object)
	return nil
}

func file(name, contentType, body string) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func TestUploadImagesStoresEveryFile(t *testing.T) {
	store := newMemoryStore()
	svc, err := NewService(store, Limits{}, nil)
	require.NoError(t, err)

	uploads, err := svc.UploadImages(context.Background(), enums.MediaKindProduct, []File{
		file("front view.png", "image/png", pngHeader+"front"),
		file("back.png", "image/png; charset=binary", pngHeader+"back"),
	})
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.True(t, strings.HasPrefix(uploads[0].Key, "product/"))
	assert.True(t, strings.HasSuffix(uploads[0].Key, "/front-view.png"))
	assert.Equal(t, "https://cdn.example.com/"+uploads[0].Key, uploads[0].URL)
	assert.True(t, strings.HasPrefix(store.objects[uploads[1].Key], "image/png:"))
}

func TestUploadImagesValidation(t *testing.T) {
	svc, err := NewService(newMemoryStore(), Limits{MaxFiles: 2, MaxBytes: 64}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	cases := map[string][]File{
		"no files":      nil,
		"too many":      {file("a.png", "image/png", pngHeader), file("b.png", "image/png", pngHeader), file("c.png", "image/png", pngHeader)},
		"too large":     {file("a.png", "image/png", pngHeader+strings.Repeat("x", 100))},
		"not an image":  {file("a.pdf", "application/pdf", "%PDF-1.7")},
		"spoofed image": {file("a.png", "image/png", "plain text pretending")},
		"empty":         {file("a.png", "image/png", "")},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UploadImages(ctx, enums.MediaKindProduct, files)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err = svc.UploadImages(ctx, "avatar", []File{file("a.png", "image/png", pngHeader)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadImagesRollsBackOnFailure(t *testing.T) {
	store := newMemoryStore()
	store.failOn = 2
	svc, err := NewService(store, Limits{}, nil)
	require.NoError(t, err)

	_, err = svc.UploadImages(context.Background(), enums.MediaKindCustomStyle, []File{
		file("a.png", "image/png", pngHeader+"a"),
		file("b.png", "image/png", pngHeader+"b"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.objects)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "my-shirt.png", sanitizeFileName(`C:\Users\me\my shirt.png`))
	assert.Equal(t, "", sanitizeFileName("  "))
}
