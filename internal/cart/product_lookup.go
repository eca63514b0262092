package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

// ProductInfo is the slice of a catalog product the cart needs.
type ProductInfo struct {
	ID       uuid.UUID
	Name     string
	Category enums.ProductCategory
	Price    decimal.Decimal
	Sizes    []string
	Colors   []string
	Images   []string
}

// Snapshot copies the display fields stored on a new line item.
func (p ProductInfo) Snapshot() Snapshot {
	return Snapshot{
		UnitPrice: p.Price,
		Name:      p.Name,
		Images:    append([]string(nil), p.Images...),
	}
}

// ProductLookup resolves catalog data for cart operations.
type ProductLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductInfo, error)
	Categories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]enums.ProductCategory, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type catalogLookup struct {
	finder productFinder
}

// NewCatalogLookup adapts the products repository to ProductLookup.
func NewCatalogLookup(finder productFinder) ProductLookup {
	return &catalogLookup{finder: finder}
}

func (l *catalogLookup) FindByID(ctx context.Context, id uuid.UUID) (*ProductInfo, error) {
	product, err := l.finder.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return &ProductInfo{
		ID:       product.ID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		Sizes:    []string(product.Sizes),
		Colors:   []string(product.Colors),
		Images:   []string(product.Images),
	}, nil
}

// Categories returns the category of every product that still exists. Deleted
// products are absent from the map and never qualify for offers.
func (l *catalogLookup) Categories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]enums.ProductCategory, error) {
	out := make(map[uuid.UUID]enums.ProductCategory, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := l.finder.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product categories")
	}
	for _, product := range products {
		out[product.ID] = product.Category
	}
	return out, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
