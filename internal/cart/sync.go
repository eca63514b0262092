package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SyncColor accepts either a JSON string or an array of strings. Arrays collapse
// to their first element, or "" when empty.
type SyncColor string

func (c *SyncColor) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*c = SyncColor(strings.TrimSpace(value))
		return nil
	case '[':
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return fmt.Errorf("color: %w", err)
		}
		*c = SyncColor(NormalizeColor(values))
		return nil
	default:
		return fmt.Errorf("color must be a string or an array of strings")
	}
}

// NormalizeColor reduces a multi-select color list to the single value used in the merge key.
func NormalizeColor(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// SyncItem is one line of a client-held cart being reconciled with the server
// copy. Price, Name and Images come from the client.
type SyncItem struct {
	ProductID    uuid.UUID       `json:"productId" validate:"required"`
	Quantity     int             `json:"quantity" validate:"required,min=1"`
	Size         string          `json:"size" validate:"required"`
	Color        SyncColor       `json:"color"`
	GiftWrapping bool            `json:"giftWrapping"`
	Price        decimal.Decimal `json:"price"`
	Name         string          `json:"name"`
	Images       []string        `json:"images"`
}
