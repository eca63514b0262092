package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/threadhouse-backend/internal/webhooks/stripe"
	pkgredis "github.com/angelmondragon/threadhouse-backend/pkg/redis"
)

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	orderID := uuid.NewString()
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded, orderID)
	payments := &fakePayments{}
	handler := newHandler(t, payments)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(payments.succeeded) != 1 || payments.succeeded[0] != orderID {
		t.Fatalf("expected succeeded intent for %s, got %v", orderID, payments.succeeded)
	}

	// Replay the same event
	rec = post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(payments.succeeded) != 1 {
		t.Fatalf("expected duplicate not processed, calls %d", len(payments.succeeded))
	}
}

func TestStripeWebhook_FailedIntent(t *testing.T) {
	orderID := uuid.NewString()
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentPaymentFailed, orderID)
	payments := &fakePayments{}

	rec := post(newHandler(t, payments), payload, header)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(payments.failed) != 1 || len(payments.succeeded) != 0 {
		t.Fatalf("expected one failed intent, got %+v", payments)
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded, uuid.NewString())
	payments := &fakePayments{}

	rec := post(newHandler(t, payments), payload, "t=1,v1=invalid")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if len(payments.succeeded) != 0 {
		t.Fatalf("payments should not be invoked on invalid signature")
	}
}

func TestStripeWebhook_ReleasesGuardOnFailure(t *testing.T) {
	payload, header := buildSignedEvent(t, stripe.EventTypePaymentIntentSucceeded, uuid.NewString())
	payments := &fakePayments{err: errors.New("db down")}
	handler := newHandler(t, payments)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	payments.err = nil
	rec = post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if len(payments.succeeded) != 2 {
		t.Fatalf("expected retry to reach the payment service, calls %d", len(payments.succeeded))
	}
}

func TestStripeWebhook_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	StripeWebhook(nil, nil, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func newHandler(t *testing.T, payments *fakePayments) http.HandlerFunc {
	t.Helper()
	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: payments})
	if err != nil {
		t.Fatalf("service setup: %v", err)
	}
	guard, err := pkgredis.NewGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return StripeWebhook(svc, &fakeSigningClient{secret: "whsec_test"}, guard, nil)
}

func post(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func buildSignedEvent(t *testing.T, eventType stripe.EventType, orderID string) ([]byte, string) {
	intent := &stripe.PaymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Amount:   149900,
		Currency: stripe.CurrencyINR,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{"order_id": orderID},
	}
	rawIntent, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawIntent,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	header := buildStripeSignatureHeader(payload, "whsec_test", time.Now().Unix())
	return payload, header
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakePayments struct {
	succeeded []string
	failed    []string
	err       error
}

func (f *fakePayments) HandleIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	f.succeeded = append(f.succeeded, intent.Metadata["order_id"])
	return f.err
}

func (f *fakePayments) HandleIntentFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	f.failed = append(f.failed, intent.Metadata["order_id"])
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		data: make(map[string]string),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("th:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
