package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func snap(price int64, name string) Snapshot {
	return Snapshot{UnitPrice: decimal.NewFromInt(price), Name: name, Images: []string{"https://cdn.example.com/" + name + ".png"}}
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.NewFromInt(want).Equal(got), "expected %d got %s", want, got.String())
}

func assertTotalMatchesLines(t *testing.T, p Pricing, c *Cart) {
	t.Helper()
	sum := decimal.Zero
	for _, item := range c.Items {
		assert.True(t, p.LineTotal(item).Equal(item.LineTotal), "line total out of date for %s", item.Name)
		sum = sum.Add(item.LineTotal)
	}
	assert.True(t, sum.Equal(c.TotalPrice), "total %s != sum of lines %s", c.TotalPrice, sum)
}

func TestComputeCartTotalWithGiftWrap(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	a, b := uuid.New(), uuid.New()

	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: a, Quantity: 2, Size: "M", Color: "Black"}, snap(10, "a"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: b, Quantity: 1, Size: "L", Color: "White", GiftWrapping: true}, snap(5, "b"), fixedNow))

	assertDecimal(t, 55, c.TotalPrice)
	assertDecimal(t, 20, c.Items[0].LineTotal)
	assertDecimal(t, 35, c.Items[1].LineTotal)
}

func TestComputeCartTotalIsIdempotent(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 3, Size: "S"}, snap(499, "tee"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 1, Size: "XL", GiftWrapping: true}, snap(1299, "hoodie"), fixedNow))

	first := p.ComputeCartTotal(c)
	second := p.ComputeCartTotal(c)
	assert.True(t, first.Equal(second))
	assertDecimal(t, 3*499+1299+30, second)
}

func TestAddOrMergeSumsQuantitiesForSameKey(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()

	for _, qty := range []int{1, 2, 4} {
		require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: qty, Size: "M", Color: "Navy"}, snap(250, "tee"), fixedNow))
	}

	require.Len(t, c.Items, 1)
	assert.Equal(t, 7, c.Items[0].Quantity)
	assertDecimal(t, 1750, c.Items[0].LineTotal)
	assertTotalMatchesLines(t, p, c)
}

func TestAddOrMergeKeepsDistinctKeysApart(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()

	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M", Color: "Navy"}, snap(250, "tee"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "L", Color: "Navy"}, snap(250, "tee"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M", Color: "Red"}, snap(250, "tee"), fixedNow))

	assert.Len(t, c.Items, 3)
	assertDecimal(t, 750, c.TotalPrice)
}

func TestAddOrMergeKeepsOriginalSnapshot(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()

	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M"}, snap(100, "old"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M", GiftWrapping: true}, snap(180, "new"), fixedNow.Add(time.Hour)))

	require.Len(t, c.Items, 1)
	item := c.Items[0]
	assert.Equal(t, "old", item.Name)
	assertDecimal(t, 100, item.UnitPrice)
	assert.True(t, item.GiftWrapping, "gift wrapping is last write wins")
	assert.Equal(t, fixedNow, item.AddedAt)
	assertDecimal(t, (100+30)*2, c.TotalPrice)
}

func TestAddOrMergeRejectsInvalidRequests(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())

	err := p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 0, Size: "M"}, snap(1, "x"), fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 1, Size: " "}, snap(1, "x"), fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, c.Items)
}

func TestRemoveItemMissingProductLeavesCartUnchanged(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 2, Size: "M"}, snap(10, "a"), fixedNow))
	before := c.Clone()

	err := p.RemoveItem(c, ItemMatch{ProductID: uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, before, c)
}

func TestRemoveItemNarrowsBySizeAndColor(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M", Color: "Navy"}, snap(100, "tee"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 2, Size: "L", Color: "Navy"}, snap(100, "tee"), fixedNow))

	size := "l"
	require.NoError(t, p.RemoveItem(c, ItemMatch{ProductID: productID, Size: &size}))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "M", c.Items[0].Size)
	assertDecimal(t, 100, c.TotalPrice)

	color := "Red"
	err := p.RemoveItem(c, ItemMatch{ProductID: productID, Color: &color})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, p.RemoveItem(c, ItemMatch{ProductID: productID}))
	assert.Empty(t, c.Items)
	assertDecimal(t, 0, c.TotalPrice)
}

func TestRemoveItemRepricesFromStoredUnitPrice(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	keep, drop := uuid.New(), uuid.New()
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: keep, Quantity: 2, Size: "M"}, snap(40, "keep"), fixedNow))
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: drop, Quantity: 1, Size: "M"}, snap(70, "drop"), fixedNow))

	c.Items[0].LineTotal = decimal.NewFromInt(1)
	require.NoError(t, p.RemoveItem(c, ItemMatch{ProductID: drop}))
	assertDecimal(t, 80, c.TotalPrice)
	assertTotalMatchesLines(t, p, c)
}

// One legacy handler overwrote the quantity without touching lineTotal or
// totalPrice. Quantity updates here always reprice the cart.
func TestUpdateItemQuantityRecomputesTotals(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M", GiftWrapping: true}, snap(100, "tee"), fixedNow))

	require.NoError(t, p.UpdateItemQuantity(c, ItemMatch{ProductID: productID}, 3))
	assert.Equal(t, 3, c.Items[0].Quantity)
	assertDecimal(t, 390, c.Items[0].LineTotal)
	assertDecimal(t, 390, c.TotalPrice)

	staleTotal := decimal.NewFromInt(130)
	assert.False(t, staleTotal.Equal(c.TotalPrice))
}

func TestUpdateItemQuantityErrors(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	productID := uuid.New()
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: productID, Quantity: 1, Size: "M"}, snap(100, "tee"), fixedNow))

	err := p.UpdateItemQuantity(c, ItemMatch{ProductID: productID}, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = p.UpdateItemQuantity(c, ItemMatch{ProductID: uuid.New()}, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestClearEmptiesCart(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 1, Size: "M"}, snap(100, "tee"), fixedNow))

	p.Clear(c)
	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Items)
	assertDecimal(t, 0, c.TotalPrice)
}

func TestCloneIsDeep(t *testing.T) {
	p := DefaultPricing()
	c := NewCart(uuid.New())
	require.NoError(t, p.AddOrMerge(c, ItemRequest{ProductID: uuid.New(), Quantity: 1, Size: "M"}, snap(100, "tee"), fixedNow))

	clone := c.Clone()
	clone.Items[0].Quantity = 9
	clone.Items[0].Images[0] = "changed"

	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.NotEqual(t, "changed", c.Items[0].Images[0])
	assert.Equal(t, 9, clone.ItemCount())
}
