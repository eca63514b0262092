package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

// LineItem is one (product, size, color) entry in a cart. UnitPrice, Name and
// Images are captured when the line is first created and never refreshed.
type LineItem struct {
	ProductID    uuid.UUID       `json:"productId"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
	GiftWrapping bool            `json:"giftWrapping"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Name         string          `json:"name"`
	Images       []string        `json:"images"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
	AddedAt      time.Time       `json:"addedAt"`
}

// Key returns the merge identity of the line.
func (i LineItem) Key() MergeKey {
	return MergeKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// MergeKey identifies a distinct line item. Size and color compare without
// regard to case, the same way ItemMatch does.
type MergeKey struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

// Same reports whether k and other name the same line.
func (k MergeKey) Same(other MergeKey) bool {
	return k.ProductID == other.ProductID &&
		strings.EqualFold(k.Size, other.Size) &&
		strings.EqualFold(k.Color, other.Color)
}

// Cart is the single cart owned by a user. TotalPrice is derived and is
// rewritten by every mutation.
type Cart struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	Items      []LineItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewCart returns an empty, unsaved cart for userID.
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		ID:         uuid.New(),
		UserID:     userID,
		Items:      []LineItem{},
		TotalPrice: decimal.Zero,
	}
}

// Clone deep-copies the cart so callers can price a view without touching the original.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]LineItem, len(c.Items))
	for i, item := range c.Items {
		item.Images = append([]string(nil), item.Images...)
		out.Items[i] = item
	}
	return &out
}

// ItemCount is the sum of quantities across lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// ItemRequest is a single add/merge instruction.
type ItemRequest struct {
	ProductID    uuid.UUID
	Quantity     int
	Size         string
	Color        string
	GiftWrapping bool
}

// Snapshot holds the product display fields copied into a new line.
type Snapshot struct {
	UnitPrice decimal.Decimal
	Name      string
	Images    []string
}

// ItemMatch selects a line for removal or quantity updates. Size and Color
// narrow the match only when set.
type ItemMatch struct {
	ProductID uuid.UUID
	Size      *string
	Color     *string
}

func (m ItemMatch) matches(item LineItem) bool {
	if item.ProductID != m.ProductID {
		return false
	}
	if m.Size != nil && !strings.EqualFold(item.Size, *m.Size) {
		return false
	}
	if m.Color != nil && !strings.EqualFold(item.Color, *m.Color) {
		return false
	}
	return true
}

// Pricing holds the flat-fee and bundle parameters of the shop.
type Pricing struct {
	GiftWrapSurcharge decimal.Decimal
	BundlePrice       decimal.Decimal
	BundleSize        int
	BundleCategory    enums.ProductCategory
}

// DefaultPricing is a surcharge of 30 and three tees for 1299.
func DefaultPricing() Pricing {
	return Pricing{
		GiftWrapSurcharge: decimal.NewFromInt(30),
		BundlePrice:       decimal.NewFromInt(1299),
		BundleSize:        3,
		BundleCategory:    enums.ProductCategoryTshirt,
	}
}

// LineTotal is (unitPrice + surcharge when gift wrapped) * quantity.
func (p Pricing) LineTotal(item LineItem) decimal.Decimal {
	unit := item.UnitPrice
	if item.GiftWrapping {
		unit = unit.Add(p.GiftWrapSurcharge)
	}
	return unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// ComputeCartTotal refreshes every lineTotal from the stored unit price and sets
// totalPrice to their sum. Calling it repeatedly yields the same value.
func (p Pricing) ComputeCartTotal(c *Cart) decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].LineTotal = p.LineTotal(c.Items[i])
		total = total.Add(c.Items[i].LineTotal)
	}
	c.TotalPrice = total
	return total
}

// AddOrMerge sums quantity into the line sharing req's merge key, or appends a
// new line built from snap. Gift wrapping is last-write-wins and a merged line
// keeps the spelling it was created with.
func (p Pricing) AddOrMerge(c *Cart, req ItemRequest, snap Snapshot, now time.Time) error {
	if req.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if strings.TrimSpace(req.Size) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "size is required")
	}

	key := MergeKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	if idx := indexOfKey(c.Items, key); idx >= 0 {
		existing := &c.Items[idx]
		existing.Quantity += req.Quantity
		existing.GiftWrapping = req.GiftWrapping
		existing.LineTotal = p.LineTotal(*existing)
	} else {
		item := LineItem{
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			Size:         req.Size,
			Color:        req.Color,
			GiftWrapping: req.GiftWrapping,
			UnitPrice:    snap.UnitPrice,
			Name:         snap.Name,
			Images:       append([]string(nil), snap.Images...),
			AddedAt:      now.UTC(),
		}
		item.LineTotal = p.LineTotal(item)
		c.Items = append(c.Items, item)
	}

	p.ComputeCartTotal(c)
	return nil
}

// RemoveItem drops the first line matching m and reprices the remaining lines
// from their stored unit prices.
func (p Pricing) RemoveItem(c *Cart, m ItemMatch) error {
	idx := indexOfMatch(c.Items, m)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found in cart")
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	p.ComputeCartTotal(c)
	return nil
}

// UpdateItemQuantity overwrites the quantity of the first line matching m.
func (p Pricing) UpdateItemQuantity(c *Cart, m ItemMatch, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	idx := indexOfMatch(c.Items, m)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found in cart")
	}
	c.Items[idx].Quantity = quantity
	p.ComputeCartTotal(c)
	return nil
}

// Clear empties the cart; the document itself is kept.
func (p Pricing) Clear(c *Cart) {
	c.Items = []LineItem{}
	p.ComputeCartTotal(c)
}

func indexOfKey(items []LineItem, key MergeKey) int {
	for i, item := range items {
		if item.Key().Same(key) {
			return i
		}
	}
	return -1
}

func indexOfMatch(items []LineItem, m ItemMatch) int {
	for i, item := range items {
		if m.matches(item) {
			return i
		}
	}
	return -1
}
