package customstyles

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

const (
	defaultFirstName = "Anonymous User"
)

// SubmitInput is the form data sent alongside the design image.
type SubmitInput struct {
	FirstName     string          `json:"firstName"`
	Email         string          `json:"email"`
	ProductName   string          `json:"productName"`
	ProductImages []string        `json:"productImages"`
	ProductPrice  decimal.Decimal `json:"productPrice"`
	SelectedSize  string          `json:"selectedSize"`
	SelectedColor string          `json:"selectedColor"`
}

// ListInput filters the operator listing.
type ListInput struct {
	Status *enums.CustomStyleStatus
	UserID *uuid.UUID
	Limit  int
	Cursor string
}

// ProductDTO is the base product the design is printed on.
type ProductDTO struct {
	Name   string          `json:"name"`
	Images []string        `json:"images"`
	Price  decimal.Decimal `json:"price"`
}

// RequestDTO is the API view of a custom style request.
type RequestDTO struct {
	ID            uuid.UUID               `json:"id"`
	UserID        uuid.UUID               `json:"userId"`
	FirstName     string                  `json:"firstName"`
	Email         string                  `json:"email"`
	ImageURLs     []string                `json:"imageUrls"`
	Product       ProductDTO              `json:"product"`
	SelectedSize  string                  `json:"selectedSize"`
	SelectedColor string                  `json:"selectedColor"`
	Status        enums.CustomStyleStatus `json:"status"`
	SubmittedAt   time.Time               `json:"submittedAt"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// ListResult is one page of requests.
type ListResult struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// FromModel maps a stored request to its DTO.
func FromModel(m *models.CustomStyleRequest) *RequestDTO {
	if m == nil {
		return nil
	}
	return &RequestDTO{
		ID:        m.ID,
		UserID:    m.UserID,
		FirstName: m.FirstName,
		Email:     m.Email,
		ImageURLs: append([]string{}, m.ImageURLs...),
		Product: ProductDTO{
			Name:   m.ProductName,
			Images: append([]string{}, m.ProductImages...),
			Price:  m.ProductPrice,
		},
		SelectedSize:  m.SelectedSize,
		SelectedColor: m.SelectedColor,
		Status:        m.Status,
		SubmittedAt:   m.SubmittedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
