package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// Service defines order placement and administration.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	List(ctx context.Context, viewer Viewer, input ListOrdersInput) (*OrderListResult, error)
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	ResendConfirmation(ctx context.Context, orderID uuid.UUID) error
	ResendStatus(ctx context.Context, orderID uuid.UUID) error
}

// Viewer is the caller an order read is evaluated for.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// CartReader is the slice of the cart aggregator checkout depends on.
type CartReader interface {
	View(ctx context.Context, userID uuid.UUID) (*cart.View, error)
	ClearAt(ctx context.Context, userID uuid.UUID, version int64) (*cart.Cart, error)
}

// ServiceParams bundles the order service collaborators.
type ServiceParams struct {
	Repo       Repository
	Carts      CartReader
	Emails     notifications.Dispatcher
	AdminEmail string
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo       Repository
	carts      CartReader
	emails     notifications.Dispatcher
	adminEmail string
	logg       *logger.Logger
	now        func() time.Time
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email dispatcher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repo,
		carts:      params.Carts,
		emails:     params.Emails,
		adminEmail: params.AdminEmail,
		logg:       logg,
		now:        clock,
	}, nil
}

// Checkout turns the caller's priced cart into an order. The cart is cleared
// at the version that was priced once the order row exists; if the cart moved
// in between or clearing fails the order is removed again.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	view, err := s.carts.View(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, err
	}
	if view.Cart == nil || len(view.Cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]models.OrderItem, 0, len(view.Cart.Items))
	subtotal := decimal.Zero
	for _, line := range view.Cart.Items {
		items = append(items, models.OrderItem{
			ProductID:    line.ProductID,
			ProductName:  line.Name,
			ProductImage: append([]string(nil), line.Images...),
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			Size:         line.Size,
			Color:        line.Color,
			GiftWrapping: line.GiftWrapping,
			LineTotal:    line.LineTotal,
		})
		subtotal = subtotal.Add(line.LineTotal)
	}
	discount := view.Offer.Savings

	placedAt := s.now().UTC()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Contact: models.OrderContact{
			Email: strings.ToLower(strings.TrimSpace(input.ContactInformation.Email)),
			Phone: strings.TrimSpace(input.ContactInformation.Phone),
		},
		Shipping:      input.ShippingInformation.toModel(),
		Items:         items,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Subtotal:      subtotal,
		Discount:      discount,
		ShippingFee:   input.ShippingFee,
		Taxes:         input.Taxes,
		Total:         subtotal.Sub(discount).Add(input.ShippingFee).Add(input.Taxes),
		Status:        enums.OrderStatusPending,
		PlacedAt:      placedAt,
		CreatedAt:     placedAt,
		UpdatedAt:     placedAt,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
	}
	ctx = s.logg.WithOrderID(ctx, created.ID.String())

	if _, err := s.carts.ClearAt(ctx, userID, view.Cart.Version); err != nil {
		if delErr := s.repo.Delete(ctx, created.ID); delErr != nil {
			s.logg.Error(ctx, "order.rollback_failed", delErr)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":      created.Total.StringFixed(2),
		"discount":   created.Discount.StringFixed(2),
		"line_count": len(created.Items),
		"item_count": view.Cart.ItemCount(),
	}), "order.placed")

	if err := s.emails.Dispatch(ctx, notifications.OrderPlacedJob(NotificationSummary(created), s.adminEmail)); err != nil {
		s.logg.Error(ctx, "order.placed_email_failed", err)
	}
	return FromModel(created), nil
}

func (s *service) List(ctx context.Context, viewer Viewer, input ListOrdersInput) (*OrderListResult, error) {
	if !viewer.Admin {
		if input.UserID != nil && *input.UserID != viewer.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list orders of another user")
		}
		input.UserID = &viewer.UserID
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.UserID, pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}

	rows, next := pagination.Trim(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Orders = append(result.Orders, *FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !viewer.Admin && order.UserID != viewer.UserID {
		// Other users' orders are reported as missing.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

// UpdateStatus applies an operator status change. Delivered and Cancelled
// orders are final.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.AdminSettable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %q cannot be set directly", status))
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return FromModel(order), nil
	}
	if order.Status.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and can no longer change", order.Status)).
			WithDetails(map[string]any{"current": order.Status, "requested": status})
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
	}
	order.Status = status
	order.UpdatedAt = s.now().UTC()

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithField(ctx, "status", status.String()), "order.status_updated")
	if err := s.emails.Dispatch(ctx, notifications.OrderStatusJob(NotificationSummary(order))); err != nil {
		s.logg.Error(ctx, "order.status_email_failed", err)
	}
	return FromModel(order), nil
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if err := s.repo.Delete(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order")
	}
	return nil
}

func (s *service) ResendConfirmation(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, notifications.OrderPlacedJob(NotificationSummary(order), s.adminEmail))
}

func (s *service) ResendStatus(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, notifications.OrderStatusJob(NotificationSummary(order)))
}

func (s *service) dispatch(ctx context.Context, job notifications.Job) error {
	if err := s.emails.Dispatch(ctx, job); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue email")
	}
	return nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// NotificationSummary extracts what order emails render.
func NotificationSummary(o *models.Order) notifications.OrderSummary {
	lines := make([]notifications.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, notifications.Line{
			Name:         it.ProductName,
			Size:         it.Size,
			Color:        it.Color,
			Quantity:     it.Quantity,
			GiftWrapping: it.GiftWrapping,
			LineTotal:    it.LineTotal.StringFixed(2),
		})
	}
	return notifications.OrderSummary{
		OrderID:       o.ID,
		CustomerName:  strings.TrimSpace(o.Shipping.FirstName + " " + o.Shipping.LastName),
		Email:         o.Contact.Email,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Shipping:      o.ShippingFee,
		Taxes:         o.Taxes,
		Total:         o.Total,
		Lines:         lines,
		PlacedAt:      o.PlacedAt,
	}
}

func validateCheckout(input CreateOrderInput) error {
	switch {
	case !input.PaymentMethod.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	case input.ShippingFee.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping cannot be negative")
	case input.Taxes.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "taxes cannot be negative")
	case strings.TrimSpace(input.ContactInformation.Email) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}
	return nil
}
