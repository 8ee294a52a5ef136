package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-catalog-backend/pkg/redis"
)

func newIdempotencyStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func postProduct(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), "cashier-1", "staff"))
}

func TestRouteRequiresIdempotency(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/products", true},
		{http.MethodPost, "/api/v1/products/", true},
		{http.MethodPost, "/api/v1/categories", true},
		{http.MethodPatch, "/api/v1/products/stock/8b0c", true},
		{http.MethodPatch, "/api/v1/products/stock/", false},
		{http.MethodPut, "/api/v1/products/8b0c", false},
		{http.MethodDelete, "/api/v1/categories/8b0c", false},
		{http.MethodGet, "/api/v1/products", false},
	}
	for _, tt := range tests {
		if got := routeRequiresIdempotency(tt.method, tt.path); got != tt.want {
			t.Fatalf("%s %s: expected %v got %v", tt.method, tt.path, tt.want, got)
		}
	}
}

func TestIdempotencyPassesThroughWithoutHeaderOrStore(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		Idempotency(store, time.Hour, logger.Nop())(handler).ServeHTTP(resp, postProduct("", `{"name":"Cola"}`))
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	resp := httptest.NewRecorder()
	Idempotency(nil, time.Hour, nil)(handler).ServeHTTP(resp, postProduct("k", `{"name":"Cola"}`))
	if calls != 3 {
		t.Fatalf("expected every request to reach the handler, got %d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	mw := Idempotency(store, time.Hour, logger.Nop())
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"name":"Cola"}}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, postProduct("abc", `{"name":"Cola"}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, postProduct("abc", `{"name":"Cola"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get(idempotencyReplayed) != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"name":"Cola"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	mw := Idempotency(store, time.Hour, logger.Nop())
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), postProduct("xyz", `{"name":"Cola"}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, postProduct("xyz", `{"name":"Water"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	key := store.IdempotencyKey(strings.Join([]string{"cashier-1", http.MethodPost, "/api/v1/products"}, "|"), "busy")
	if err := mr.Set(key, pendingRecord); err != nil {
		t.Fatalf("seed: %v", err)
	}

	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	resp := httptest.NewRecorder()
	Idempotency(store, time.Hour, logger.Nop())(handler).ServeHTTP(resp, postProduct("busy", `{}`))
	if resp.Code != http.StatusConflict || called {
		t.Fatalf("expected in-flight rejection, got %d called=%v", resp.Code, called)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	mw := Idempotency(store, time.Hour, logger.Nop())
	status := http.StatusInternalServerError
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), postProduct("retry", `{}`))
	status = http.StatusCreated
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, postProduct("retry", `{}`))
	if resp.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d after %d calls", resp.Code, calls)
	}
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	mw := Idempotency(store, time.Hour, logger.Nop())
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), postProduct("shared", `{}`))
	other := postProduct("shared", `{}`)
	other = other.WithContext(WithActor(context.Background(), "cashier-2", "staff"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("expected keys to be scoped per actor, handler ran %d times", calls)
	}
}
