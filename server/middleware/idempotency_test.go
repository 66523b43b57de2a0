package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func openTestIdempotencyStore(t *testing.T, ttl time.Duration) *IdempotencyStore {
	t.Helper()
	store, err := OpenIdempotencyStore(filepath.Join(t.TempDir(), "idempotency.db"), ttl)
	if err != nil {
		t.Fatalf("open idempotency store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"compositeScore":82}`))
	})
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store := openTestIdempotencyStore(t, time.Hour)
	calls := 0
	handler := WithIdempotency(store, nil)(countingHandler(&calls))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/alice/scores", nil)
	req.Header.Set("Idempotency-Key", "submit-1")
	handler.ServeHTTP(first, req)

	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusCreated)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	second := httptest.NewRecorder()
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/owners/alice/scores", nil)
	replay.Header.Set("Idempotency-Key", "submit-1")
	handler.ServeHTTP(second, replay)

	if calls != 1 {
		t.Fatalf("handler ran again on replay, calls = %d", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want %d", second.Code, http.StatusCreated)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}
}

func TestIdempotencyDistinctKeysExecute(t *testing.T) {
	store := openTestIdempotencyStore(t, time.Hour)
	calls := 0
	handler := WithIdempotency(store, nil)(countingHandler(&calls))

	for _, key := range []string{"submit-1", "submit-2"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/alice/scores", nil)
		req.Header.Set("Idempotency-Key", key)
		handler.ServeHTTP(rr, req)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestIdempotencyMissingKeyPassesThrough(t *testing.T) {
	store := openTestIdempotencyStore(t, time.Hour)
	calls := 0
	handler := WithIdempotency(store, nil)(countingHandler(&calls))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/owners/alice/scores", nil))
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	store := openTestIdempotencyStore(t, time.Minute)
	now := time.Now().UTC()
	if err := store.save("stale", idempotencyRecord{
		StatusCode: http.StatusCreated,
		Body:       []byte(`{}`),
		StoredAt:   now.Add(-2 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, ok, err := store.lookup("stale", now); err != nil {
		t.Fatalf("lookup: %v", err)
	} else if ok {
		t.Fatalf("expired record still replayable")
	}
}
