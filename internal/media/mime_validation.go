package media

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const sniffLen = 512

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

// detectImageType checks the declared type and the leading bytes of the file.
// Both must agree on an allowed image type.
func detectImageType(declared string, head []byte) (string, error) {
	declaredType, err := sniffMimeType(declared)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(declaredType, "image/") {
		return "", fmt.Errorf("only image uploads are allowed, got %s", declaredType)
	}
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	if _, ok := allowedImageTypes[detected]; !ok {
		return "", fmt.Errorf("file content is not a supported image (%s)", detected)
	}
	return detected, nil
}
