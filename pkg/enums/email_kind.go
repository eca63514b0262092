package enums

import "fmt"

// EmailKind identifies the template of a queued transactional email.
type EmailKind string

const (
	EmailKindOrderPlaced   EmailKind = "order_placed"
	EmailKindOrderStatus   EmailKind = "order_status"
	EmailKindOrderPaid     EmailKind = "order_paid"
	EmailKindPasswordReset EmailKind = "password_reset"
	EmailKindCustomStyle   EmailKind = "custom_style_received"
)

var validEmailKinds = []EmailKind{
	EmailKindOrderPlaced,
	EmailKindOrderStatus,
	EmailKindOrderPaid,
	EmailKindPasswordReset,
	EmailKindCustomStyle,
}

// String implements fmt.Stringer.
func (k EmailKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EmailKind.
func (k EmailKind) IsValid() bool {
	for _, candidate := range validEmailKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEmailKind converts raw input into an EmailKind.
func ParseEmailKind(value string) (EmailKind, error) {
	for _, candidate := range validEmailKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email kind %q", value)
}
