package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

const ordersDDL = `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  contact TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  items TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  payment_intent_id TEXT,
  subtotal TEXT NOT NULL,
  discount TEXT NOT NULL,
  shipping_fee TEXT NOT NULL,
  taxes TEXT NOT NULL,
  total TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  placed_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(ordersDDL).Error)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Contact:       models.OrderContact{Email: "ada@example.com", Phone: "555-0100"},
		Shipping:      models.OrderAddress{FirstName: "Ada", LastName: "Lovelace", Address: "1 Loom St", City: "London", State: "LDN", PostalCode: "N1", Country: "UK"},
		Items:         []models.OrderItem{{ProductID: uuid.New(), ProductName: "Tee", UnitPrice: decimal.NewFromInt(500), Quantity: 1, Size: "M", LineTotal: decimal.NewFromInt(500)}},
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Subtotal:      decimal.NewFromInt(500),
		Discount:      decimal.Zero,
		ShippingFee:   decimal.Zero,
		Taxes:         decimal.Zero,
		Total:         decimal.NewFromInt(500),
		Status:        enums.OrderStatusPending,
		PlacedAt:      createdAt,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	created, err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	return created
}

type stubCarts struct {
	view     *cart.View
	viewErr  error
	clearErr error
	moved    int64
	cleared  []uuid.UUID
}

func (s *stubCarts) View(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	if s.view == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found for this user")
	}
	return s.view, nil
}

func (s *stubCarts) ClearAt(ctx context.Context, userID uuid.UUID, version int64) (*cart.Cart, error) {
	if s.clearErr != nil {
		return nil, s.clearErr
	}
	if s.view != nil && s.view.Cart.Version+s.moved != version {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed since it was read")
	}
	s.cleared = append(s.cleared, userID)
	return cart.NewCart(userID), nil
}

type captureDispatcher struct {
	jobs []notifications.Job
	err  error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, job notifications.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}
