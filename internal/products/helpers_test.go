package product

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

const productsDDL = `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'Hoodies',
  gender TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  sizes TEXT NOT NULL,
  colors TEXT NOT NULL,
  images TEXT NOT NULL,
  tags TEXT NOT NULL,
  details TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(productsDDL).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, category enums.ProductCategory, createdAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        fmt.Sprintf("%s %s", category, uuid.NewString()[:8]),
		Description: "Heavyweight cotton",
		Category:    category,
		Gender:      enums.GenderUnisex,
		Price:       decimal.NewFromInt(799),
		Stock:       20,
		Sizes:       pq.StringArray{"S", "M", "L"},
		Colors:      pq.StringArray{"Black", "White"},
		Images:      pq.StringArray{"https://cdn.example.com/front.png"},
		Tags:        pq.StringArray{"new"},
		Details:     DefaultDetails(category),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
