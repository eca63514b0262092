package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/internal/notifications"
	"github.com/angelmondragon/threadhouse-backend/internal/orders"
	"github.com/angelmondragon/threadhouse-backend/pkg/db"
	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

const metadataOrderID = "order_id"

var minorUnits = decimal.NewFromInt(100)

// Gateway is the Stripe surface used for card payments.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	Currency() string
}

// Service creates and reconciles card payments for orders.
type Service interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentResult, error)
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*orders.OrderDTO, error)
	HandleIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error
	HandleIntentFailed(ctx context.Context, intent *stripe.PaymentIntent) error
}

// CreateIntentInput is the create-payment-intent request.
type CreateIntentInput struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

// VerifyInput is the verify-payment request.
type VerifyInput struct {
	OrderID         uuid.UUID `json:"orderId" validate:"required"`
	PaymentIntentID string    `json:"paymentIntentId" validate:"required"`
}

// IntentResult is what the client needs to confirm a card payment.
type IntentResult struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// ServiceParams bundles payment service collaborators.
type ServiceParams struct {
	Orders  orders.Repository
	Gateway Gateway
	Emails  notifications.Dispatcher
	Logger  *logger.Logger
}

type service struct {
	orders  orders.Repository
	gateway Gateway
	emails  notifications.Dispatcher
	logg    *logger.Logger
}

// NewService constructs the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Emails == nil {
		return nil, fmt.Errorf("email dispatcher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		orders:  params.Orders,
		gateway: params.Gateway,
		emails:  params.Emails,
		logg:    logg,
	}, nil
}

// CreateIntent returns a payment intent for the order total. An open intent
// already attached to the order is reused.
func (s *service) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentResult, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodCard {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not paid by card")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	amount := AmountFor(order.Total)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	idempotencyKey := fmt.Sprintf("order:%s:%d", order.ID, amount)
	if order.PaymentIntentID != nil {
		existing, err := s.gateway.GetPaymentIntent(ctx, *order.PaymentIntentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: fetch payment intent")
		}
		if reusable(existing, amount) {
			return resultFrom(existing), nil
		}
		idempotencyKey += ":" + existing.ID
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.gateway.Currency()),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(order.Contact.Email),
	}
	params.AddMetadata(metadataOrderID, order.ID.String())
	params.AddMetadata("user_id", order.UserID.String())
	params.SetIdempotencyKey(idempotencyKey)

	intent, err := s.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: create payment intent")
	}
	if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		if db.IsUniqueViolation(err, orders.PaymentIntentUniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment intent already attached to another order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: attach payment intent")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", intent.ID), "payment.intent_created")
	return resultFrom(intent), nil
}

// Verify checks a client-confirmed intent against the gateway and marks the
// order paid when it succeeded.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*orders.OrderDTO, error) {
	order, err := s.ownedOrder(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID != nil && *order.PaymentIntentID != input.PaymentIntentID {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment does not belong to this order")
	}
	intent, err := s.gateway.GetPaymentIntent(ctx, input.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: fetch payment intent")
	}
	if err := checkIntent(intent, order); err != nil {
		return nil, err
	}
	if order.PaymentIntentID == nil {
		if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: attach payment intent")
		}
		order.PaymentIntentID = &intent.ID
	}
	if err := s.markPaid(ctx, order); err != nil {
		return nil, err
	}
	return orders.FromModel(order), nil
}

// HandleIntentSucceeded reconciles a payment_intent.succeeded event.
func (s *service) HandleIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	order, err := s.orderForIntent(ctx, intent)
	if err != nil {
		return err
	}
	if err := checkIntent(intent, order); err != nil {
		return err
	}
	return s.markPaid(ctx, order)
}

// HandleIntentFailed records a failed attempt. Paid orders are left alone.
func (s *service) HandleIntentFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	order, err := s.orderForIntent(ctx, intent)
	if err != nil {
		return err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil
	}
	if err := s.orders.UpdatePayment(ctx, order.ID, enums.PaymentStatusFailed, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: record payment failure")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Warn(s.logg.WithField(ctx, "payment_intent_id", intent.ID), "payment.failed")
	return nil
}

func (s *service) markPaid(ctx context.Context, order *models.Order) error {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil
	}
	var next *enums.OrderStatus
	if order.Status == enums.OrderStatusPending {
		confirmed := enums.OrderStatusConfirmed
		next = &confirmed
	}
	if err := s.orders.UpdatePayment(ctx, order.ID, enums.PaymentStatusPaid, next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order paid")
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	if next != nil {
		order.Status = *next
	}
	order.UpdatedAt = time.Now().UTC()

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "payment.captured")
	if err := s.emails.Dispatch(ctx, notifications.OrderPaidJob(orders.NotificationSummary(order))); err != nil {
		s.logg.Error(ctx, "payment.paid_email_failed", err)
	}
	return nil
}

func (s *service) ownedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) orderForIntent(ctx context.Context, intent *stripe.PaymentIntent) (*models.Order, error) {
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent required")
	}
	orderID, err := uuid.Parse(intent.Metadata[metadataOrderID])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent has no order reference")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// AmountFor converts an order total to the gateway's minor currency unit.
func AmountFor(total decimal.Decimal) int64 {
	return total.Mul(minorUnits).Round(0).IntPart()
}

func checkIntent(intent *stripe.PaymentIntent, order *models.Order) error {
	if intent.Metadata[metadataOrderID] != order.ID.String() {
		return pkgerrors.New(pkgerrors.CodePayment, "payment does not belong to this order")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodePayment, "payment has not succeeded").
			WithDetails(map[string]any{"status": intent.Status})
	}
	if intent.Amount != AmountFor(order.Total) {
		return pkgerrors.New(pkgerrors.CodePayment, "payment amount does not match order total").
			WithDetails(map[string]any{"expected": AmountFor(order.Total), "received": intent.Amount})
	}
	return nil
}

func reusable(intent *stripe.PaymentIntent, amount int64) bool {
	if intent == nil || intent.Amount != amount {
		return false
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction:
		return true
	default:
		return false
	}
}

func resultFrom(intent *stripe.PaymentIntent) *IntentResult {
	return &IntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        string(intent.Currency),
	}
}
