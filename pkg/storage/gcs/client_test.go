package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func staticTokens(token string) *tokenSource {
	return &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		return token, time.Now().Add(time.Hour), nil
	}}
}

type recordedRequest struct {
	method      string
	path        string
	query       string
	auth        string
	contentType string
	body        string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{
			method:      r.Method,
			path:        r.URL.EscapedPath(),
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"request failed"}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestUploadReturnsPublicURL(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK)
	client := newClient(srv.Client(), "shop-media", srv.URL, "https://cdn.example.com/", staticTokens("tok"))

	u, err := client.Upload(context.Background(), "custom-styles/a b.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if u != "https://cdn.example.com/shop-media/custom-styles/a%20b.png" {
		t.Fatalf("unexpected url %s", u)
	}
	if len(*seen) != 1 {
		t.Fatalf("expected one request, got %d", len(*seen))
	}
	req := (*seen)[0]
	if req.method != http.MethodPost || req.path != "/upload/storage/v1/b/shop-media/o" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.Contains(req.query, "uploadType=media") || !strings.Contains(req.query, "name=custom-styles%2Fa+b.png") {
		t.Fatalf("unexpected query %s", req.query)
	}
	if req.auth != "Bearer tok" || req.contentType != "image/png" || req.body != "png-bytes" {
		t.Fatalf("unexpected headers/body %+v", req)
	}
}

func TestUploadSurfacesAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusForbidden)
	client := newClient(srv.Client(), "shop-media", srv.URL, "", staticTokens("tok"))

	_, err := client.Upload(context.Background(), "x.png", "image/png", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsNotFound(err) {
		t.Fatalf("403 must not be reported as not found")
	}
	if _, err := client.Upload(context.Background(), " ", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for empty object name")
	}
}

func TestDeleteIgnoresMissingObjects(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusNotFound)
	client := newClient(srv.Client(), "shop-media", srv.URL, "", staticTokens("tok"))

	if err := client.Delete(context.Background(), "custom-styles/gone.png"); err != nil {
		t.Fatalf("expected nil for missing object, got %v", err)
	}
	if (*seen)[0].method != http.MethodDelete || (*seen)[0].path != "/storage/v1/b/shop-media/o/custom-styles%2Fgone.png" {
		t.Fatalf("unexpected request %+v", (*seen)[0])
	}
}

func TestPingAndDefaults(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK)
	client := newClient(srv.Client(), "shop-media", srv.URL, "", staticTokens("tok"))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if (*seen)[0].query != "maxResults=1" {
		t.Fatalf("unexpected ping query %s", (*seen)[0].query)
	}
	if client.PublicURL("a.png") != "https://storage.googleapis.com/shop-media/a.png" {
		t.Fatalf("unexpected default public url %s", client.PublicURL("a.png"))
	}

	var nilClient *Client
	if err := nilClient.Ping(context.Background()); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestTokenSourceCachesUntilExpiry(t *testing.T) {
	calls := 0
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "tok", time.Now().Add(time.Hour), nil
	}}
	for i := 0; i < 3; i++ {
		if _, err := ts.Token(context.Background()); err != nil {
			t.Fatalf("token: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected cached token, fetched %d times", calls)
	}

	failing := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		return "", time.Time{}, errors.New("metadata unavailable")
	}}
	client := newClient(http.DefaultClient, "b", "http://127.0.0.1:0", "", failing)
	if _, err := client.Upload(context.Background(), "a", "", strings.NewReader("")); err == nil {
		t.Fatalf("expected token error")
	}
}

func TestServiceAccountAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	creds, _ := json.Marshal(map[string]string{
		"client_email": "signer@example.com",
		"private_key":  string(pemKey),
	})
	if _, err := newServiceAccountTokenSource(http.DefaultClient, string(creds)); err != nil {
		t.Fatalf("token source: %v", err)
	}
	if _, err := newServiceAccountTokenSource(http.DefaultClient, `{"client_email":"x"}`); err == nil {
		t.Fatalf("expected error for incomplete credentials")
	}

	assertion, err := signedAssertion("signer@example.com", tokenEndpoint, key, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(assertion, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three jwt segments, got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	if claims["iss"] != "signer@example.com" || claims["scope"] != scope {
		t.Fatalf("unexpected claims %v", claims)
	}
}
