package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

// Product is a catalog listing. Sizes, colors, images and tags are postgres text arrays.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	Category    enums.ProductCategory `gorm:"column:category;not null"`
	Gender      enums.Gender          `gorm:"column:gender;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int                   `gorm:"column:stock;not null;default:0"`
	Sizes       pq.StringArray        `gorm:"column:sizes;type:text[];not null"`
	Colors      pq.StringArray        `gorm:"column:colors;type:text[];not null"`
	Images      pq.StringArray        `gorm:"column:images;type:text[];not null"`
	Tags        pq.StringArray        `gorm:"column:tags;type:text[];not null"`
	Details     map[string]string     `gorm:"column:details;type:jsonb;serializer:json;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
