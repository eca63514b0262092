package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

type offerFixture struct {
	cart       *Cart
	categories map[uuid.UUID]enums.ProductCategory
}

func newOfferFixture() *offerFixture {
	return &offerFixture{cart: NewCart(uuid.New()), categories: map[uuid.UUID]enums.ProductCategory{}}
}

func (f *offerFixture) add(t *testing.T, p Pricing, category enums.ProductCategory, price int64, qty int, gift bool) {
	t.Helper()
	id := uuid.New()
	f.categories[id] = category
	require.NoError(t, p.AddOrMerge(f.cart, ItemRequest{ProductID: id, Quantity: qty, Size: "M", GiftWrapping: gift}, snap(price, string(category)), fixedNow))
}

func TestEvaluateBundleAppliesToExactlyThreeTees(t *testing.T) {
	p := DefaultPricing()
	f := newOfferFixture()
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 600, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 700, 1, false)
	f.add(t, p, enums.ProductCategoryHoodies, 200, 1, false)

	offer := p.EvaluateBundle(f.cart, f.categories)

	assert.True(t, offer.Applied)
	assert.Equal(t, 3, offer.QualifyingCount)
	assert.Equal(t, 0, offer.RemainingForOffer)
	assertDecimal(t, 2000, offer.RegularTotal)
	assertDecimal(t, 501, offer.Savings)
	assertDecimal(t, 1499, offer.PayableTotal)
	assertDecimal(t, 2000, f.cart.TotalPrice)
}

func TestEvaluateBundleDoesNotTriggerForTwoOrFourTees(t *testing.T) {
	for _, count := range []int{2, 4} {
		p := DefaultPricing()
		f := newOfferFixture()
		for i := 0; i < count; i++ {
			f.add(t, p, enums.ProductCategoryTshirt, 600, 1, false)
		}

		offer := p.EvaluateBundle(f.cart, f.categories)
		assert.False(t, offer.Applied, "count %d", count)
		assert.Equal(t, count, offer.QualifyingCount)
		assertDecimal(t, int64(600*count), offer.PayableTotal)
		assertDecimal(t, 0, offer.Savings)
	}
}

func TestEvaluateBundleIgnoresMultiQuantityAndOtherCategories(t *testing.T) {
	p := DefaultPricing()
	f := newOfferFixture()
	f.add(t, p, enums.ProductCategoryTshirt, 600, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 600, 2, false)
	f.add(t, p, enums.ProductCategoryOversizeTshirt, 600, 1, false)

	offer := p.EvaluateBundle(f.cart, f.categories)
	assert.False(t, offer.Applied)
	assert.Equal(t, 1, offer.QualifyingCount)
	assert.Equal(t, 2, offer.RemainingForOffer)
}

func TestEvaluateBundleKeepsGiftWrapSurcharge(t *testing.T) {
	p := DefaultPricing()
	f := newOfferFixture()
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, true)
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)

	offer := p.EvaluateBundle(f.cart, f.categories)
	require.True(t, offer.Applied)
	assertDecimal(t, 1299+30, offer.PayableTotal)
	assertDecimal(t, 201, offer.Savings)
}

func TestEvaluateBundleAppliesFlatPriceToCheapTees(t *testing.T) {
	p := DefaultPricing()
	f := newOfferFixture()
	f.add(t, p, enums.ProductCategoryTshirt, 300, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 300, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 300, 1, false)

	offer := p.EvaluateBundle(f.cart, f.categories)
	assert.True(t, offer.Applied)
	assertDecimal(t, 900, offer.RegularTotal)
	assertDecimal(t, 1299, offer.PayableTotal)
	assertDecimal(t, -399, offer.Savings)
	assertDecimal(t, 900, f.cart.TotalPrice)
}

func TestEvaluateBundleTreatsUnknownProductsAsNonQualifying(t *testing.T) {
	p := DefaultPricing()
	f := newOfferFixture()
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)
	f.add(t, p, enums.ProductCategoryTshirt, 500, 1, false)
	delete(f.categories, f.cart.Items[0].ProductID)

	offer := p.EvaluateBundle(f.cart, f.categories)
	assert.False(t, offer.Applied)
	assert.Equal(t, 2, offer.QualifyingCount)
	assert.True(t, decimal.NewFromInt(1299).Equal(offer.BundlePrice))
}
