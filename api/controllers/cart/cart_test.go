package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadhouse-backend/api/middleware"
	cartsvc "github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

type stubCartService struct {
	userID   uuid.UUID
	add      cartsvc.AddItemInput
	synced   []cartsvc.SyncItem
	match    cartsvc.ItemMatch
	quantity int
	cleared  bool
	err      error
}

func (s *stubCartService) cart() *cartsvc.Cart {
	return &cartsvc.Cart{ID: uuid.New(), UserID: s.userID, Items: []cartsvc.LineItem{}, TotalPrice: decimal.NewFromInt(55)}
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.Cart, error) {
	s.userID, s.add = userID, input
	if s.err != nil {
		return nil, s.err
	}
	return s.cart(), nil
}

func (s *stubCartService) Sync(ctx context.Context, userID uuid.UUID, items []cartsvc.SyncItem) (*cartsvc.Cart, error) {
	s.userID, s.synced = userID, items
	if s.err != nil {
		return nil, s.err
	}
	return s.cart(), nil
}

func (s *stubCartService) View(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &cartsvc.View{Cart: s.cart(), Offer: cartsvc.OfferDetails{BundleSize: 3}}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID uuid.UUID, match cartsvc.ItemMatch) (*cartsvc.Cart, error) {
	s.userID, s.match = userID, match
	if s.err != nil {
		return nil, s.err
	}
	return s.cart(), nil
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, match cartsvc.ItemMatch, quantity int) (*cartsvc.Cart, error) {
	s.userID, s.match, s.quantity = userID, match, quantity
	if s.err != nil {
		return nil, s.err
	}
	return s.cart(), nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*cartsvc.Cart, error) {
	s.userID, s.cleared = userID, true
	return s.cart(), s.err
}

func (s *stubCartService) ClearAt(ctx context.Context, userID uuid.UUID, version int64) (*cartsvc.Cart, error) {
	return s.Clear(ctx, userID)
}

func withActor(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), userID, role))
}

func withParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCartAddUsesCaller(t *testing.T) {
	svc := &stubCartService{}
	caller := uuid.New()
	productID := uuid.New()
	body := `{"productId":"` + productID.String() + `","quantity":2,"size":"M","color":"red","giftWrapping":true}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/cart/add-to-cart", bytes.NewBufferString(body)), caller, enums.RoleUser)
	rec := httptest.NewRecorder()

	CartAdd(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, caller, svc.userID)
	assert.Equal(t, productID, svc.add.ProductID)
	assert.Equal(t, 2, svc.add.Quantity)
	assert.True(t, svc.add.GiftWrapping)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "item added to cart", resp.Message)
	require.NotNil(t, resp.Cart)
	assert.True(t, resp.Cart.TotalPrice.Equal(decimal.NewFromInt(55)))
}

func TestCartAddRejectsOtherUserAndBadBody(t *testing.T) {
	caller := uuid.New()
	productID := uuid.New().String()

	body := `{"userId":"` + uuid.NewString() + `","productId":"` + productID + `","quantity":1,"size":"M"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/cart/add-to-cart", bytes.NewBufferString(body)), caller, enums.RoleUser)
	rec := httptest.NewRecorder()
	CartAdd(&stubCartService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body = `{"productId":"` + productID + `","quantity":0,"size":"M"}`
	req = withActor(httptest.NewRequest(http.MethodPost, "/api/cart/add-to-cart", bytes.NewBufferString(body)), caller, enums.RoleUser)
	rec = httptest.NewRecorder()
	CartAdd(&stubCartService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartViewOwnership(t *testing.T) {
	owner := uuid.New()
	cases := []struct {
		name   string
		caller uuid.UUID
		role   enums.Role
		want   int
	}{
		{"owner", owner, enums.RoleUser, http.StatusOK},
		{"admin", uuid.New(), enums.RoleAdmin, http.StatusOK},
		{"other user", uuid.New(), enums.RoleUser, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cart/cart/"+owner.String(), nil)
			req = withActor(withParams(req, map[string]string{"userId": owner.String()}), tc.caller, tc.role)
			rec := httptest.NewRecorder()
			CartView(&stubCartService{}, nil).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCartViewNotFound(t *testing.T) {
	owner := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")}
	req := httptest.NewRequest(http.MethodGet, "/api/cart/cart/"+owner.String(), nil)
	req = withActor(withParams(req, map[string]string{"userId": owner.String()}), owner, enums.RoleUser)
	rec := httptest.NewRecorder()

	CartView(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartSyncIgnoresDisplayFields(t *testing.T) {
	svc := &stubCartService{}
	owner := uuid.New()
	productID := uuid.New()
	body := `{"userId":"` + owner.String() + `","items":[{"productId":"` + productID.String() + `","quantity":1,"size":"L","color":["red","blue"],"price":500,"name":"Tee","category":"Tshirt","_localId":7}]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/cart/sync-cart", bytes.NewBufferString(body)), owner, enums.RoleUser)
	rec := httptest.NewRecorder()

	CartSync(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.synced, 1)
	assert.Equal(t, cartsvc.SyncColor("red"), svc.synced[0].Color)
	assert.Equal(t, "cart synced", decodeResponse(t, rec).Message)
}

func TestCartSyncRejectsForeignUser(t *testing.T) {
	body := `{"userId":"` + uuid.NewString() + `","items":[]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/cart/sync-cart", bytes.NewBufferString(body)), uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()

	CartSync(&stubCartService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCartRemoveItemOptionalFilters(t *testing.T) {
	owner := uuid.New()
	productID := uuid.New()
	params := map[string]string{"userId": owner.String(), "productId": productID.String()}

	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodDelete, "/api/cart/cart/remove-item/x/y?size=M", nil)
	req = withActor(withParams(req, params), owner, enums.RoleUser)
	rec := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, svc.match.ProductID)
	require.NotNil(t, svc.match.Size)
	assert.Equal(t, "M", *svc.match.Size)
	assert.Nil(t, svc.match.Color)

	svc = &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")}
	req = httptest.NewRequest(http.MethodDelete, "/api/cart/cart/remove-item/x/y?color=", nil)
	req = withActor(withParams(req, params), owner, enums.RoleUser)
	rec = httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, svc.match.Color)
}

func TestCartUpdateItem(t *testing.T) {
	svc := &stubCartService{}
	owner := uuid.New()
	productID := uuid.New()
	body := `{"userId":"` + owner.String() + `","productId":"` + productID.String() + `","quantity":4,"color":"red"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/cart/cart/update-item", bytes.NewBufferString(body)), owner, enums.RoleUser)
	rec := httptest.NewRecorder()

	CartUpdateItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, svc.quantity)
	assert.Nil(t, svc.match.Size)
	require.NotNil(t, svc.match.Color)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Quantity)
	assert.Equal(t, 4, *resp.Quantity)

	body = `{"userId":"` + owner.String() + `","productId":"` + productID.String() + `","quantity":0}`
	req = withActor(httptest.NewRequest(http.MethodPost, "/api/cart/cart/update-item", bytes.NewBufferString(body)), owner, enums.RoleUser)
	rec = httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	owner := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/cart/cart/"+owner.String(), nil)
	req = withActor(withParams(req, map[string]string{"userId": owner.String()}), owner, enums.RoleUser)
	rec := httptest.NewRecorder()

	CartClear(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.cleared)
	assert.Equal(t, owner, svc.userID)
}

func TestCartHandlersRequireAuth(t *testing.T) {
	owner := uuid.New()
	req := withParams(httptest.NewRequest(http.MethodGet, "/api/cart/cart/"+owner.String(), nil), map[string]string{"userId": owner.String()})
	rec := httptest.NewRecorder()

	CartView(&stubCartService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
