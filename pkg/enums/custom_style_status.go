package enums

import "fmt"

// CustomStyleStatus tracks a custom print request through the studio.
type CustomStyleStatus string

const (
	CustomStyleStatusPending    CustomStyleStatus = "pending"
	CustomStyleStatusInProgress CustomStyleStatus = "in-progress"
	CustomStyleStatusCompleted  CustomStyleStatus = "completed"
	CustomStyleStatusCancelled  CustomStyleStatus = "cancelled"
)

var validCustomStyleStatuses = []CustomStyleStatus{
	CustomStyleStatusPending,
	CustomStyleStatusInProgress,
	CustomStyleStatusCompleted,
	CustomStyleStatusCancelled,
}

// String implements fmt.Stringer.
func (s CustomStyleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CustomStyleStatus.
func (s CustomStyleStatus) IsValid() bool {
	for _, candidate := range validCustomStyleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCustomStyleStatus converts raw input into a CustomStyleStatus.
func ParseCustomStyleStatus(value string) (CustomStyleStatus, error) {
	for _, candidate := range validCustomStyleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid custom style status %q", value)
}
