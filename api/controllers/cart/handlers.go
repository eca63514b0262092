package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadhouse-backend/api/middleware"
	"github.com/angelmondragon/threadhouse-backend/api/responses"
	"github.com/angelmondragon/threadhouse-backend/api/validators"
	cartsvc "github.com/angelmondragon/threadhouse-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

type addToCartRequest struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	cartsvc.AddItemInput
}

type syncCartRequest struct {
	UserID uuid.UUID          `json:"userId" validate:"required"`
	Items  []cartsvc.SyncItem `json:"items" validate:"dive"`
}

type updateItemRequest struct {
	UserID    uuid.UUID `json:"userId" validate:"required"`
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
}

type cartResponse struct {
	Message  string        `json:"message"`
	Quantity *int          `json:"quantity,omitempty"`
	Cart     *cartsvc.Cart `json:"cart"`
}

// CartAdd merges an item into the caller's cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addToCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		userID := actor.UserID
		if payload.UserID != nil && *payload.UserID != uuid.Nil {
			if !actor.CanActFor(*payload.UserID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify another user's cart"))
				return
			}
			userID = *payload.UserID
		}

		cart, err := svc.AddItem(r.Context(), userID, payload.AddItemInput)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{Message: "item added to cart", Cart: cart})
	}
}

// CartView returns the cart priced with the bundle offer.
func CartView(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.View(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartSync reconciles a guest cart kept by the storefront into the stored cart.
// Unknown fields are ignored since guest carts carry display data.
func CartSync(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload syncCartRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, payload.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.Sync(r.Context(), payload.UserID, payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{Message: "cart synced", Cart: cart})
	}
}

// CartRemoveItem drops matching lines. size and color narrow the match when present.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		match := cartsvc.ItemMatch{
			ProductID: productID,
			Size:      nonEmpty(validators.OptionalQuery(r, "size")),
			Color:     nonEmpty(validators.OptionalQuery(r, "color")),
		}
		cart, err := svc.RemoveItem(r.Context(), userID, match)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{Message: "item removed from cart", Cart: cart})
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, payload.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		match := cartsvc.ItemMatch{ProductID: payload.ProductID, Size: nonEmpty(payload.Size), Color: nonEmpty(payload.Color)}
		cart, err := svc.UpdateItemQuantity(r.Context(), payload.UserID, match, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := payload.Quantity
		responses.WriteSuccess(w, cartResponse{Message: "cart item updated", Quantity: &quantity, Cart: cart})
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := userFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Clear(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartResponse{Message: "cart cleared", Cart: cart})
	}
}

func userFromPath(r *http.Request) (uuid.UUID, error) {
	userID, err := validators.ParseUUIDParam(r, "userId")
	if err != nil {
		return uuid.Nil, err
	}
	if err := authorize(r, userID); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// authorize allows the cart owner and admins.
func authorize(r *http.Request, userID uuid.UUID) error {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.CanActFor(userID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot access another user's cart")
	}
	return nil
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
