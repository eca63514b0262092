package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

// ContactInput is how the buyer can be reached.
type ContactInput struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// ShippingInput is the delivery address submitted at checkout.
type ShippingInput struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Company    string `json:"company"`
	Address    string `json:"address" validate:"required"`
	Apartment  string `json:"apartment"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// CreateOrderInput is the checkout request. Line items come from the server cart.
type CreateOrderInput struct {
	ContactInformation  ContactInput        `json:"contactInformation" validate:"required"`
	ShippingInformation ShippingInput       `json:"shippingInformation" validate:"required"`
	PaymentMethod       enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	ShippingFee         decimal.Decimal     `json:"shipping"`
	Taxes               decimal.Decimal     `json:"taxes"`
}

// ListOrdersInput selects a page of orders. A nil UserID lists every order.
type ListOrdersInput struct {
	UserID *uuid.UUID
	Limit  int
	Cursor string
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage []string        `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size"`
	Color        string          `json:"color,omitempty"`
	GiftWrapping bool            `json:"giftWrapping"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// OrderSummaryDTO carries the money breakdown of an order.
type OrderSummaryDTO struct {
	Items    []OrderItemDTO  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Taxes    decimal.Decimal `json:"taxes"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentDTO describes how and whether the order was paid.
type PaymentDTO struct {
	Method          enums.PaymentMethod `json:"method"`
	Status          enums.PaymentStatus `json:"status"`
	PaymentIntentID *string             `json:"paymentIntentId,omitempty"`
}

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"userId"`
	ContactInformation  ContactInput      `json:"contactInformation"`
	ShippingInformation ShippingInput     `json:"shippingInformation"`
	PaymentInformation  PaymentDTO        `json:"paymentInformation"`
	OrderSummary        OrderSummaryDTO   `json:"orderSummary"`
	Status              enums.OrderStatus `json:"status"`
	OrderDate           time.Time         `json:"orderDate"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// OrderListResult is a page of orders.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// FromModel maps the persisted order to its API shape.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			Size:         it.Size,
			Color:        it.Color,
			GiftWrapping: it.GiftWrapping,
			LineTotal:    it.LineTotal,
		})
	}
	return &OrderDTO{
		ID:     o.ID,
		UserID: o.UserID,
		ContactInformation: ContactInput{
			Email: o.Contact.Email,
			Phone: o.Contact.Phone,
		},
		ShippingInformation: ShippingInput{
			FirstName:  o.Shipping.FirstName,
			LastName:   o.Shipping.LastName,
			Company:    o.Shipping.Company,
			Address:    o.Shipping.Address,
			Apartment:  o.Shipping.Apartment,
			City:       o.Shipping.City,
			State:      o.Shipping.State,
			PostalCode: o.Shipping.PostalCode,
			Country:    o.Shipping.Country,
		},
		PaymentInformation: PaymentDTO{
			Method:          o.PaymentMethod,
			Status:          o.PaymentStatus,
			PaymentIntentID: o.PaymentIntentID,
		},
		OrderSummary: OrderSummaryDTO{
			Items:    items,
			Subtotal: o.Subtotal,
			Discount: o.Discount,
			Shipping: o.ShippingFee,
			Taxes:    o.Taxes,
			Total:    o.Total,
		},
		Status:    o.Status,
		OrderDate: o.PlacedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (in ShippingInput) toModel() models.OrderAddress {
	return models.OrderAddress{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Company:    strings.TrimSpace(in.Company),
		Address:    strings.TrimSpace(in.Address),
		Apartment:  strings.TrimSpace(in.Apartment),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
	}
}
