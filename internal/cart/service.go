package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

const defaultConflictRetries = 3

// Store persists one cart document per user. FindByUser returns (nil, nil)
// when the user has no cart. Save is an upsert guarded by Cart.Version and
// returns a CONFLICT error when the stored version moved underneath the caller.
type Store interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) (*Cart, error)
}

// Recorder observes cart operations; pkg/metrics provides the prometheus implementation.
type Recorder interface {
	ObserveMutation(op, result string)
	ObserveBundle(applied bool)
}

// Service is the cart aggregator entry point used by the HTTP layer and checkout.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*Cart, error)
	Sync(ctx context.Context, userID uuid.UUID, items []SyncItem) (*Cart, error)
	View(ctx context.Context, userID uuid.UUID) (*View, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, match ItemMatch) (*Cart, error)
	UpdateItemQuantity(ctx context.Context, userID uuid.UUID, match ItemMatch, quantity int) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*Cart, error)
	ClearAt(ctx context.Context, userID uuid.UUID, version int64) (*Cart, error)
}

// AddItemInput is the add-to-cart request.
type AddItemInput struct {
	ProductID    uuid.UUID `json:"productId" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,min=1"`
	Size         string    `json:"size" validate:"required"`
	Color        string    `json:"color"`
	GiftWrapping bool      `json:"giftWrapping"`
}

// View is the read-path representation: the cart priced with the bundle rule
// plus the offer metadata. The stored document is not changed.
type View struct {
	Cart  *Cart        `json:"cart"`
	Offer OfferDetails `json:"offerDetails"`
}

// ServiceParams packages the dependencies of the cart service.
type ServiceParams struct {
	Store           Store
	Products        ProductLookup
	Pricing         Pricing
	SyncReprice     bool
	ConflictRetries int
	Recorder        Recorder
	Logger          *logger.Logger
	Clock           func() time.Time
}

type service struct {
	store       Store
	products    ProductLookup
	pricing     Pricing
	syncReprice bool
	retries     int
	recorder    Recorder
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Pricing.BundleSize < 1 {
		return nil, fmt.Errorf("bundle size must be positive")
	}
	retries := params.ConflictRetries
	if retries < 1 {
		retries = defaultConflictRetries
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:       params.Store,
		products:    params.Products,
		pricing:     params.Pricing,
		syncReprice: params.SyncReprice,
		retries:     retries,
		recorder:    params.Recorder,
		logg:        logg,
		now:         clock,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*Cart, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	size, err := normalizeSize(input.Size, product)
	if err != nil {
		return nil, err
	}
	color, err := normalizeColor(input.Color, product)
	if err != nil {
		return nil, err
	}

	req := ItemRequest{
		ProductID:    product.ID,
		Quantity:     input.Quantity,
		Size:         size,
		Color:        color,
		GiftWrapping: input.GiftWrapping,
	}
	return s.mutate(ctx, "add", userID, true, func(c *Cart) error {
		return s.pricing.AddOrMerge(c, req, product.Snapshot(), s.now())
	})
}

func (s *service) Sync(ctx context.Context, userID uuid.UUID, items []SyncItem) (*Cart, error) {
	type resolved struct {
		req  ItemRequest
		snap Snapshot
	}
	plan := make([]resolved, 0, len(items))

	for i, item := range items {
		if item.Quantity < 1 {
			return nil, itemError(i, "quantity must be at least 1")
		}
		color := strings.TrimSpace(string(item.Color))

		var snap Snapshot
		size := strings.ToUpper(strings.TrimSpace(item.Size))
		if s.syncReprice {
			product, err := s.products.FindByID(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			if size, err = normalizeSize(item.Size, product); err != nil {
				return nil, err
			}
			if color, err = normalizeColor(color, product); err != nil {
				return nil, err
			}
			snap = product.Snapshot()
		} else {
			if _, err := enums.ParseSize(size); err != nil {
				return nil, itemError(i, err.Error())
			}
			if item.Price.IsNegative() {
				return nil, itemError(i, "price must not be negative")
			}
			snap = Snapshot{UnitPrice: item.Price, Name: item.Name, Images: item.Images}
		}

		plan = append(plan, resolved{
			req: ItemRequest{
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				Size:         size,
				Color:        color,
				GiftWrapping: item.GiftWrapping,
			},
			snap: snap,
		})
	}

	return s.mutate(ctx, "sync", userID, true, func(c *Cart) error {
		now := s.now()
		for _, step := range plan {
			if err := s.pricing.AddOrMerge(c, step.req, step.snap, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	stored, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found for this user")
	}

	ids := make([]uuid.UUID, 0, len(stored.Items))
	for _, item := range stored.Items {
		ids = append(ids, item.ProductID)
	}
	categories, err := s.products.Categories(ctx, ids)
	if err != nil {
		return nil, err
	}

	priced := stored.Clone()
	s.pricing.ComputeCartTotal(priced)
	offer := s.pricing.EvaluateBundle(priced, categories)
	priced.TotalPrice = offer.PayableTotal
	s.observeBundle(offer.Applied)

	return &View{Cart: priced, Offer: offer}, nil
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, match ItemMatch) (*Cart, error) {
	normalizeMatch(&match)
	return s.mutate(ctx, "remove", userID, false, func(c *Cart) error {
		return s.pricing.RemoveItem(c, match)
	})
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, match ItemMatch, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	normalizeMatch(&match)
	return s.mutate(ctx, "update", userID, false, func(c *Cart) error {
		return s.pricing.UpdateItemQuantity(c, match, quantity)
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, "clear", userID, false, func(c *Cart) error {
		s.pricing.Clear(c)
		return nil
	})
}

// ClearAt empties the cart only while it is still at version. Any change since
// the caller read the cart yields CONFLICT and the items are kept.
func (s *service) ClearAt(ctx context.Context, userID uuid.UUID, version int64) (*Cart, error) {
	current, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		s.observe("clear", "error")
		return nil, err
	}
	if current == nil {
		s.observe("clear", "not_found")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if current.Version != version {
		s.observe("clear", "conflict")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed since it was read").
			WithDetails(map[string]any{"expected": version, "current": current.Version})
	}

	s.pricing.Clear(current)
	saved, err := s.store.Save(ctx, current)
	if err != nil {
		s.observe("clear", resultFor(err))
		return nil, err
	}
	s.observe("clear", "ok")
	return saved, nil
}

// mutate runs a read-modify-write cycle, retrying from a fresh read when the
// store reports a version conflict.
func (s *service) mutate(ctx context.Context, op string, userID uuid.UUID, create bool, apply func(*Cart) error) (*Cart, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		current, err := s.store.FindByUser(ctx, userID)
		if err != nil {
			s.observe(op, "error")
			return nil, err
		}
		if current == nil {
			if !create {
				s.observe(op, "not_found")
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			current = NewCart(userID)
		}

		if err := apply(current); err != nil {
			s.observe(op, resultFor(err))
			return nil, err
		}

		saved, err := s.store.Save(ctx, current)
		if err == nil {
			s.observe(op, "ok")
			return saved, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.observe(op, "error")
			return nil, err
		}
		lastErr = err
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"cart_op": op,
			"attempt": attempt,
			"user_id": userID.String(),
		}), "cart.save.conflict")
	}
	s.observe(op, "conflict")
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "cart was modified concurrently, retry the request")
}

func (s *service) observe(op, result string) {
	if s.recorder != nil {
		s.recorder.ObserveMutation(op, result)
	}
}

func (s *service) observeBundle(applied bool) {
	if s.recorder != nil {
		s.recorder.ObserveBundle(applied)
	}
}

func resultFor(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation:
		return "invalid"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeConflict:
		return "conflict"
	default:
		return "error"
	}
}

func normalizeMatch(m *ItemMatch) {
	if m.Size != nil {
		trimmed := strings.TrimSpace(*m.Size)
		if trimmed == "" {
			m.Size = nil
		} else {
			m.Size = &trimmed
		}
	}
	if m.Color != nil {
		trimmed := strings.TrimSpace(*m.Color)
		if trimmed == "" {
			m.Color = nil
		} else {
			m.Color = &trimmed
		}
	}
}

func normalizeSize(raw string, product *ProductInfo) (string, error) {
	size, err := enums.ParseSize(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if len(product.Sizes) == 0 {
		return size.String(), nil
	}
	for _, offered := range product.Sizes {
		if strings.EqualFold(offered, size.String()) {
			return size.String(), nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size %s is not offered for this product", size))
}

func normalizeColor(raw string, product *ProductInfo) (string, error) {
	color := strings.TrimSpace(raw)
	if len(product.Colors) == 0 {
		return color, nil
	}
	if color == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "color is required")
	}
	for _, offered := range product.Colors {
		if strings.EqualFold(offered, color) {
			return offered, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("color %q is not offered for this product", color))
}

func itemError(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: %s", index, msg)).
		WithDetails(map[string]any{"index": index})
}
