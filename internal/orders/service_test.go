package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

var fixedNow = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, carts *stubCarts) (Service, Repository, *captureDispatcher) {
	t.Helper()
	repo := NewRepository(openTestDB(t))
	emails := &captureDispatcher{}
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Carts:      carts,
		Emails:     emails,
		AdminEmail: "shop@example.com",
		Clock:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, repo, emails
}

func bundleView(userID uuid.UUID) *cart.View {
	c := cart.NewCart(userID)
	for _, price := range []int64{500, 600, 700, 200} {
		c.Items = append(c.Items, cart.LineItem{
			ProductID: uuid.New(),
			Quantity:  1,
			Size:      "M",
			Color:     "Black",
			UnitPrice: decimal.NewFromInt(price),
			Name:      "Item",
			Images:    []string{"https://cdn.example.com/a.png"},
			LineTotal: decimal.NewFromInt(price),
		})
	}
	c.TotalPrice = decimal.NewFromInt(1499)
	return &cart.View{
		Cart: c,
		Offer: cart.OfferDetails{
			Applied:      true,
			RegularTotal: decimal.NewFromInt(2000),
			Savings:      decimal.NewFromInt(501),
			PayableTotal: decimal.NewFromInt(1499),
		},
	}
}

func checkoutInput() CreateOrderInput {
	return CreateOrderInput{
		ContactInformation: ContactInput{Email: " Ada@Example.com ", Phone: "555-0100"},
		ShippingInformation: ShippingInput{
			FirstName: "Ada", LastName: "Lovelace", Address: "1 Loom St",
			City: "London", State: "LDN", PostalCode: "N1", Country: "UK",
		},
		PaymentMethod: enums.PaymentMethodCard,
		ShippingFee:   decimal.NewFromInt(50),
		Taxes:         decimal.RequireFromString("12.50"),
	}
}

func TestCheckoutAppliesBundleDiscount(t *testing.T) {
	userID := uuid.New()
	carts := &stubCarts{view: bundleView(userID)}
	svc, repo, emails := newTestService(t, carts)

	dto, err := svc.Checkout(context.Background(), userID, checkoutInput())
	require.NoError(t, err)

	assert.True(t, dto.OrderSummary.Subtotal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, dto.OrderSummary.Discount.Equal(decimal.NewFromInt(501)))
	assert.True(t, dto.OrderSummary.Total.Equal(decimal.RequireFromString("1561.50")), dto.OrderSummary.Total.String())
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.Equal(t, enums.PaymentStatusUnpaid, dto.PaymentInformation.Status)
	assert.Equal(t, "ada@example.com", dto.ContactInformation.Email)
	assert.Len(t, dto.OrderSummary.Items, 4)
	assert.Equal(t, fixedNow, dto.OrderDate)

	assert.Equal(t, []uuid.UUID{userID}, carts.cleared)
	require.Len(t, emails.jobs, 1)
	assert.Equal(t, enums.EmailKindOrderPlaced, emails.jobs[0].Kind)
	assert.Equal(t, []string{"ada@example.com", "shop@example.com"}, emails.jobs[0].To)
	assert.Equal(t, "501.00", emails.jobs[0].Vars["discount"])

	stored, err := repo.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.True(t, stored.Total.Equal(dto.OrderSummary.Total))
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	userID := uuid.New()

	svc, _, _ := newTestService(t, &stubCarts{})
	_, err := svc.Checkout(context.Background(), userID, checkoutInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing cart: %v", err)

	svc, _, _ = newTestService(t, &stubCarts{view: &cart.View{Cart: cart.NewCart(userID)}})
	_, err = svc.Checkout(context.Background(), userID, checkoutInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart: %v", err)
}

func TestCheckoutValidatesInput(t *testing.T) {
	userID := uuid.New()
	svc, _, _ := newTestService(t, &stubCarts{view: bundleView(userID)})

	input := checkoutInput()
	input.PaymentMethod = "Razorpay"
	_, err := svc.Checkout(context.Background(), userID, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	input = checkoutInput()
	input.Taxes = decimal.NewFromInt(-1)
	_, err = svc.Checkout(context.Background(), userID, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckoutRemovesOrderWhenCartClearFails(t *testing.T) {
	userID := uuid.New()
	carts := &stubCarts{view: bundleView(userID), clearErr: errors.New("store down")}
	svc, repo, emails := newTestService(t, carts)

	_, err := svc.Checkout(context.Background(), userID, checkoutInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	assert.Empty(t, emails.jobs)

	rows, err := repo.List(context.Background(), nil, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCheckoutRejectsCartChangedAfterPricing(t *testing.T) {
	userID := uuid.New()
	carts := &stubCarts{view: bundleView(userID), moved: 1}
	svc, repo, emails := newTestService(t, carts)

	_, err := svc.Checkout(context.Background(), userID, checkoutInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Empty(t, carts.cleared)
	assert.Empty(t, emails.jobs)

	rows, err := repo.List(context.Background(), nil, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCheckoutChargesBundlePriceForCheapTees(t *testing.T) {
	userID := uuid.New()
	c := cart.NewCart(userID)
	for i := 0; i < 3; i++ {
		c.Items = append(c.Items, cart.LineItem{
			ProductID: uuid.New(),
			Quantity:  1,
			Size:      "M",
			UnitPrice: decimal.NewFromInt(300),
			LineTotal: decimal.NewFromInt(300),
		})
	}
	view := &cart.View{Cart: c, Offer: cart.OfferDetails{
		Applied:      true,
		RegularTotal: decimal.NewFromInt(900),
		Savings:      decimal.NewFromInt(-399),
		PayableTotal: decimal.NewFromInt(1299),
	}}
	svc, _, _ := newTestService(t, &stubCarts{view: view})

	input := checkoutInput()
	input.ShippingFee = decimal.Zero
	input.Taxes = decimal.Zero
	dto, err := svc.Checkout(context.Background(), userID, input)
	require.NoError(t, err)
	assert.True(t, dto.OrderSummary.Total.Equal(decimal.NewFromInt(1299)), dto.OrderSummary.Total.String())
}

func TestGetAndListRespectOwnership(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubCarts{})
	owner, stranger := uuid.New(), uuid.New()
	order := seedOrder(t, repo, owner, fixedNow)
	seedOrder(t, repo, stranger, fixedNow.Add(time.Minute))
	ctx := context.Background()

	_, err := svc.Get(ctx, Viewer{UserID: stranger}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	got, err := svc.Get(ctx, Viewer{UserID: owner}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.Get(ctx, Viewer{UserID: uuid.New(), Admin: true}, order.ID)
	require.NoError(t, err)

	mine, err := svc.List(ctx, Viewer{UserID: owner}, ListOrdersInput{})
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 1)

	all, err := svc.List(ctx, Viewer{Admin: true}, ListOrdersInput{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)

	_, err = svc.List(ctx, Viewer{UserID: owner}, ListOrdersInput{UserID: &stranger})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	page, err := svc.List(ctx, Viewer{Admin: true}, ListOrdersInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.NotEmpty(t, page.NextCursor)
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, repo, emails := newTestService(t, &stubCarts{})
	order := seedOrder(t, repo, uuid.New(), fixedNow)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusConfirmed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInTransit, updated.Status)
	require.Len(t, emails.jobs, 1)
	assert.Equal(t, enums.EmailKindOrderStatus, emails.jobs[0].Kind)
	assert.Equal(t, "In Transit", emails.jobs[0].Vars["status"])

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPending)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResendEmails(t *testing.T) {
	svc, repo, emails := newTestService(t, &stubCarts{})
	order := seedOrder(t, repo, uuid.New(), fixedNow)
	ctx := context.Background()

	require.NoError(t, svc.ResendConfirmation(ctx, order.ID))
	require.NoError(t, svc.ResendStatus(ctx, order.ID))
	require.Len(t, emails.jobs, 2)
	assert.Equal(t, enums.EmailKindOrderPlaced, emails.jobs[0].Kind)
	assert.Equal(t, enums.EmailKindOrderStatus, emails.jobs[1].Kind)

	emails.err = errors.New("topic missing")
	err := svc.ResendStatus(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.True(t, pkgerrors.IsCode(svc.ResendConfirmation(ctx, uuid.New()), pkgerrors.CodeNotFound))
}

func TestDeleteOrder(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubCarts{})
	order := seedOrder(t, repo, uuid.New(), fixedNow)

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(context.Background(), order.ID), pkgerrors.CodeNotFound))
}
