package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	UpdateDetails(ctx context.Context, productID uuid.UUID, details map[string]string) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	Category    enums.ProductCategory
	Gender      enums.Gender
	Price       decimal.Decimal
	Stock       int
	Sizes       []string
	Colors      []string
	Images      []string
	Tags        []string
	Details     map[string]string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *enums.ProductCategory
	Gender      *enums.Gender
	Price       *decimal.Decimal
	Stock       *int
	Sizes       *[]string
	Colors      *[]string
	Images      *[]string
	Tags        *[]string
	Details     *map[string]string
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if input.Category == "" {
		input.Category = enums.ProductCategoryHoodies
	}
	sizes, err := normalizeSizes(input.Sizes)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Gender:      input.Gender,
		Price:       input.Price,
		Stock:       input.Stock,
		Sizes:       pq.StringArray(sizes),
		Colors:      pq.StringArray(trimAll(input.Colors)),
		Images:      pq.StringArray(trimAll(input.Images)),
		Tags:        pq.StringArray(trimAll(input.Tags)),
		Details:     input.Details,
	}
	if len(product.Details) == 0 {
		product.Details = DefaultDetails(product.Category)
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}

	categoryChanged := input.Category != nil && *input.Category != product.Category
	if err := applyUpdateToProduct(product, input); err != nil {
		return nil, err
	}
	if categoryChanged && input.Details == nil {
		product.Details = DefaultDetails(product.Category)
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// UpdateDetails merges details into the stored map and requires the full
// required field set afterwards.
func (s *service) UpdateDetails(ctx context.Context, productID uuid.UUID, details map[string]string) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(product.Details)+len(details))
	for k, v := range product.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = strings.TrimSpace(v)
	}
	if missing := MissingDetailFields(merged); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: "+strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing})
	}

	product.Details = merged
	if err := s.repo.UpdateDetails(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product details")
	}
	return NewProductDTO(product), nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, input.Filters, pagination.LimitWithBuffer(input.Pagination.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	rows, next := pagination.Trim(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Gender != nil {
		product.Gender = *input.Gender
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Sizes != nil {
		sizes, err := normalizeSizes(*input.Sizes)
		if err != nil {
			return err
		}
		product.Sizes = pq.StringArray(sizes)
	}
	if input.Colors != nil {
		product.Colors = pq.StringArray(trimAll(*input.Colors))
	}
	if input.Images != nil {
		product.Images = pq.StringArray(trimAll(*input.Images))
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(trimAll(*input.Tags))
	}
	if input.Details != nil {
		product.Details = *input.Details
	}
	return nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	case p.Description == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case !p.Category.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", p.Category))
	case !p.Gender.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid gender %q", p.Gender))
	case p.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	case p.Stock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be a non-negative integer")
	case len(p.Sizes) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one size is required")
	case len(p.Colors) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one color is required")
	case len(p.Images) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	if p.Details == nil {
		p.Details = map[string]string{}
	}
	if p.Tags == nil {
		p.Tags = pq.StringArray{}
	}
	return nil
}

func normalizeSizes(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[enums.Size]struct{}, len(values))
	for _, raw := range values {
		size, err := enums.ParseSize(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		out = append(out, size.String())
	}
	return out, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
