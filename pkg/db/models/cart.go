package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the single per-user cart document. Items live in one jsonb column so a
// save replaces the whole document atomically.
type Cart struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Items      []CartItem      `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	Version    int64           `gorm:"column:version;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string { return "carts" }

// CartItem is the jsonb element shape of Cart.Items.
type CartItem struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
	GiftWrapping bool            `json:"gift_wrapping"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Name         string          `json:"name"`
	Images       []string        `json:"images"`
	LineTotal    decimal.Decimal `json:"line_total"`
	AddedAt      time.Time       `json:"added_at"`
}
