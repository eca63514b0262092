package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

// CustomStyleRequest is a shopper-submitted design to print on a base product.
type CustomStyleRequest struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	FirstName     string                  `gorm:"column:first_name;not null"`
	Email         string                  `gorm:"column:email;not null"`
	ImageURLs     pq.StringArray          `gorm:"column:image_urls;type:text[];not null"`
	ImageKeys     pq.StringArray          `gorm:"column:image_keys;type:text[];not null"`
	ProductName   string                  `gorm:"column:product_name;not null"`
	ProductImages pq.StringArray          `gorm:"column:product_images;type:text[];not null"`
	ProductPrice  decimal.Decimal         `gorm:"column:product_price;type:numeric(12,2);not null"`
	SelectedSize  string                  `gorm:"column:selected_size;not null"`
	SelectedColor string                  `gorm:"column:selected_color;not null"`
	Status        enums.CustomStyleStatus `gorm:"column:status;not null;default:'pending'"`
	SubmittedAt   time.Time               `gorm:"column:submitted_at;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomStyleRequest) TableName() string { return "custom_style_requests" }
