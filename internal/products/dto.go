package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Gender      string            `json:"gender"`
	Price       decimal.Decimal   `json:"price"`
	Stock       int               `json:"stock"`
	Sizes       []string          `json:"size"`
	Colors      []string          `json:"color"`
	Images      []string          `json:"images"`
	Tags        []string          `json:"tags"`
	Details     map[string]string `json:"details"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewProductDTO maps the persisted model onto the API shape.
func NewProductDTO(p *models.Product) *ProductDTO {
	details := p.Details
	if details == nil {
		details = map[string]string{}
	}
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category.String(),
		Gender:      p.Gender.String(),
		Price:       p.Price,
		Stock:       p.Stock,
		Sizes:       append([]string{}, p.Sizes...),
		Colors:      append([]string{}, p.Colors...),
		Images:      append([]string{}, p.Images...),
		Tags:        append([]string{}, p.Tags...),
		Details:     details,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
