package enums

import (
	"fmt"
	"strings"
)

// Size is a garment size label.
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

var validSizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// String implements fmt.Stringer.
func (s Size) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Size.
func (s Size) IsValid() bool {
	for _, candidate := range validSizes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSize accepts sizes case-insensitively ("xl" -> XL).
func ParseSize(value string) (Size, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validSizes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid size %q", value)
}
