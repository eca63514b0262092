package cart

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/pkg/db"
	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

const cartUserUniqueConstraint = "carts_user_id_key"

type repository struct {
	db *gorm.DB
}

// NewRepository builds the postgres cart store.
func NewRepository(conn *gorm.DB) Store {
	return &repository{db: conn}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return fromModel(record), nil
}

// Save inserts the cart when it has never been persisted (Version 0) and
// otherwise updates it only if the stored version still matches.
func (r *repository) Save(ctx context.Context, cart *Cart) (*Cart, error) {
	record := toModel(cart)
	now := time.Now().UTC()

	if cart.Version == 0 {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Version = 1
		record.CreatedAt = now
		record.UpdatedAt = now
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			if db.IsUniqueViolation(err, cartUserUniqueConstraint) || db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart created concurrently")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
		}
		return fromModel(record), nil
	}

	expected := cart.Version
	record.Version = expected + 1
	record.UpdatedAt = now
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("user_id = ? AND version = ?", cart.UserID, expected).
		Select("items", "total_price", "version", "updated_at").
		Updates(&record)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update cart")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart version changed")
	}
	return fromModel(record), nil
}

func toModel(c *Cart) models.Cart {
	items := make([]models.CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, models.CartItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Size:         item.Size,
			Color:        item.Color,
			GiftWrapping: item.GiftWrapping,
			UnitPrice:    item.UnitPrice,
			Name:         item.Name,
			Images:       item.Images,
			LineTotal:    item.LineTotal,
			AddedAt:      item.AddedAt,
		})
	}
	return models.Cart{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      items,
		TotalPrice: c.TotalPrice,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func fromModel(record models.Cart) *Cart {
	items := make([]LineItem, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, LineItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			Size:         item.Size,
			Color:        item.Color,
			GiftWrapping: item.GiftWrapping,
			UnitPrice:    item.UnitPrice,
			Name:         item.Name,
			Images:       item.Images,
			LineTotal:    item.LineTotal,
			AddedAt:      item.AddedAt,
		})
	}
	return &Cart{
		ID:         record.ID,
		UserID:     record.UserID,
		Items:      items,
		TotalPrice: record.TotalPrice,
		Version:    record.Version,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}
