package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

// OfferDetails describes the bundle promotion as evaluated for one read.
type OfferDetails struct {
	Applied           bool            `json:"applied"`
	QualifyingCount   int             `json:"qualifyingCount"`
	RemainingForOffer int             `json:"remainingForOffer"`
	BundleSize        int             `json:"bundleSize"`
	BundlePrice       decimal.Decimal `json:"bundlePrice"`
	RegularTotal      decimal.Decimal `json:"regularTotal"`
	Savings           decimal.Decimal `json:"savings"`
	PayableTotal      decimal.Decimal `json:"payableTotal"`
}

// EvaluateBundle prices c with the bundle rule without modifying it. Lines in
// the bundle category with quantity exactly one qualify; when exactly
// BundleSize of them are present their unit prices are replaced by the flat
// bundle price. Gift wrap surcharges stay on top. Savings go negative when the
// three lines already cost less than the bundle price.
func (p Pricing) EvaluateBundle(c *Cart, categories map[uuid.UUID]enums.ProductCategory) OfferDetails {
	regular := decimal.Zero
	qualifyingSum := decimal.Zero
	qualifying := 0

	for _, item := range c.Items {
		regular = regular.Add(p.LineTotal(item))
		if item.Quantity == 1 && categories[item.ProductID] == p.BundleCategory {
			qualifying++
			qualifyingSum = qualifyingSum.Add(item.UnitPrice)
		}
	}

	details := OfferDetails{
		QualifyingCount: qualifying,
		BundleSize:      p.BundleSize,
		BundlePrice:     p.BundlePrice,
		RegularTotal:    regular,
		Savings:         decimal.Zero,
		PayableTotal:    regular,
	}
	if qualifying < p.BundleSize {
		details.RemainingForOffer = p.BundleSize - qualifying
	}

	if qualifying != p.BundleSize {
		return details
	}
	savings := qualifyingSum.Sub(p.BundlePrice)
	details.Applied = true
	details.Savings = savings
	details.PayableTotal = regular.Sub(savings)
	return details
}
