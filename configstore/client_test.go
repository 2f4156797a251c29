package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pkt.systems/layoutsync/schema"
)

func staticToken(token string) TokenProvider {
	return func(ctx context.Context) (string, error) { return token, nil }
}

func newTestClient(t *testing.T, baseURL string, provider TokenProvider) *Client {
	t.Helper()
	client, err := New(Options{
		BaseURL:         baseURL,
		TokenProvider:   provider,
		TokenRetries:    3,
		TokenRetryDelay: time.Millisecond,
		AllowedDomains:  []string{"example.com"},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetMapsDocument(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/cosmos/device-config/laptop" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "laptop",
			"config": map[string]any{
				"tabs": []map[string]any{
					{"id": "home", "name": "Home"},
					{"id": "a", "name": "Markets", "components": []map[string]any{
						{"id": "c1", "type": "chart", "position": map[string]int{"x": 0, "y": 0, "w": 6, "h": 4}},
					}},
				},
			},
			"updatedAt": time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok-123"))
	doc, err := client.Get(context.Background(), schema.DeviceLaptop)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if doc.DeviceType != schema.DeviceLaptop || len(doc.Tabs) != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Tabs[1].Components[0].Position.W != 6 {
		t.Fatalf("component position lost: %+v", doc.Tabs[1].Components[0])
	}
	if doc.UpdatedAt.IsZero() {
		t.Fatalf("updatedAt not decoded")
	}
}

func TestGetMissingDocumentIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok"))
	_, err := client.Get(context.Background(), schema.DeviceMobile)
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRejectsMalformedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"config": {"tabs": "not-a-list"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok"))
	_, err := client.Get(context.Background(), schema.DeviceLaptop)
	if err == nil {
		t.Fatalf("expected schema validation error")
	}
}

func TestPutSendsLockHeaders(t *testing.T) {
	var gotSession, gotLock string
	var body putRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}
		gotSession = r.Header.Get("X-Layout-Session")
		gotLock = r.Header.Get("X-Layout-Unlocked")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok"))
	tabs := []schema.Tab{{ID: "a", Name: "Alpha"}}
	headers := map[string]string{
		"X-Layout-Session":  "session-1",
		"X-Layout-Unlocked": "true",
	}
	if err := client.Put(context.Background(), schema.DeviceLaptop, tabs, nil, headers); err != nil {
		t.Fatalf("put: %v", err)
	}
	if gotSession != "session-1" || gotLock != "true" {
		t.Fatalf("lock headers missing: session=%q unlocked=%q", gotSession, gotLock)
	}
	if len(body.Tabs) != 1 || body.Tabs[0].ID != "a" {
		t.Fatalf("unexpected put body: %+v", body)
	}
}

func TestTokenProviderRetriedWithBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var calls int32
	provider := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", errors.New("token provider not ready")
		}
		return "tok", nil
	}
	client := newTestClient(t, server.URL, provider)
	if err := client.Delete(context.Background(), schema.DeviceLaptop, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 token attempts, got %d", calls)
	}
}

func TestTokenExhaustionIsAuthError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	provider := func(ctx context.Context) (string, error) {
		return "", errors.New("still booting")
	}
	client := newTestClient(t, server.URL, provider)
	_, err := client.Get(context.Background(), schema.DeviceLaptop)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", authErr.Attempts)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("request must not reach the server without a token")
	}
}

func TestUnauthorizedResponseIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("expired"))
	_, err := client.Get(context.Background(), schema.DeviceLaptop)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestCopyToRejectsForeignDomainBeforeNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok"))
	err := client.CopyTo(context.Background(), schema.CopyRequest{
		TargetEmail: "rival@othercorp.com",
		All:         true,
		Tabs:        []schema.Tab{{ID: "a", Name: "Alpha"}},
	}, nil)
	if !errors.Is(err, schema.ErrInvalidTargetEmail) {
		t.Fatalf("expected ErrInvalidTargetEmail, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("rejected copy must not issue a network request")
	}
}

func TestCopyToEncodesAllDeviceTypes(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cosmos/device-config/copy-to" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, staticToken("tok"))
	err := client.CopyTo(context.Background(), schema.CopyRequest{
		TargetEmail: "peer@example.com",
		All:         true,
		Tabs:        []schema.Tab{{ID: "a", Name: "Alpha"}},
	}, nil)
	if err != nil {
		t.Fatalf("copy-to: %v", err)
	}
	if raw["deviceTypes"] != "all" {
		t.Fatalf(`expected deviceTypes "all", got %v`, raw["deviceTypes"])
	}
}
