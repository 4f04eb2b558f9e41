package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/inventory-service/api/validators"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func reserveRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/reserve", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

type countingHandler struct {
	calls  int
	status func(call int) int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	status := http.StatusCreated
	if h.status != nil {
		status = h.status(h.calls)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"call":` + strconv.Itoa(h.calls) + `}`))
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{}
	mw := Idempotency(store, time.Minute, nil)(h)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, reserveRequest("", `{"quantity":1}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, h.calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{}
	mw := Idempotency(store, time.Minute, nil)(h)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, reserveRequest("order-1", `{"quantity":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	mw.ServeHTTP(second, reserveRequest("order-1", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, h.calls)
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newMemoryStore()
	mw := Idempotency(store, time.Minute, nil)(&countingHandler{})

	mw.ServeHTTP(httptest.NewRecorder(), reserveRequest("order-2", `{"quantity":1}`))
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, reserveRequest("order-2", `{"quantity":2}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsRequestInFlight(t *testing.T) {
	store := newMemoryStore()
	var inner http.Handler
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		inner.ServeHTTP(rec, reserveRequest("order-3", `{"quantity":1}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
		w.WriteHeader(http.StatusCreated)
	})
	inner = Idempotency(store, time.Minute, nil)(h)

	rec := httptest.NewRecorder()
	inner.ServeHTTP(rec, reserveRequest("order-3", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdempotencyReleasesClaimOnServerError(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{status: func(call int) int {
		if call == 1 {
			return http.StatusServiceUnavailable
		}
		return http.StatusCreated
	}}
	mw := Idempotency(store, time.Minute, nil)(h)

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, reserveRequest("retry-me", `{"quantity":1}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.data)

	second := httptest.NewRecorder()
	mw.ServeHTTP(second, reserveRequest("retry-me", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, h.calls)
}

func TestIdempotencyStoresClientErrors(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{status: func(int) int { return http.StatusConflict }}
	mw := Idempotency(store, time.Minute, nil)(h)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, reserveRequest("order-4", `{"quantity":99}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
	assert.Equal(t, 1, h.calls)
}

func TestIdempotencyStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("redis: connection refused")
	h := &countingHandler{}
	rec := httptest.NewRecorder()
	Idempotency(store, time.Minute, nil)(h).ServeHTTP(rec, reserveRequest("order-5", `{}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
	assert.Zero(t, h.calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	rec := httptest.NewRecorder()
	Idempotency(newMemoryStore(), time.Minute, nil)(&countingHandler{}).
		ServeHTTP(rec, reserveRequest(strings.Repeat("k", maxIdempotencyKeyBytes+1), `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyReleasesClaimWhenHandlerPanics(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusCreated)
	})
	mw := Recoverer(nil)(Idempotency(store, time.Minute, nil)(h))

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, reserveRequest("order-6", `{"quantity":1}`))
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Empty(t, store.data)

	second := httptest.NewRecorder()
	mw.ServeHTTP(second, reserveRequest("order-6", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoresResponseAfterClientDisconnect(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{}
	mw := Idempotency(store, time.Minute, nil)(h)

	ctx, cancel := context.WithCancel(context.Background())
	disconnecting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
		cancel()
	})
	first := httptest.NewRecorder()
	Idempotency(store, time.Minute, nil)(disconnecting).
		ServeHTTP(first, reserveRequest("order-7", `{"quantity":1}`).WithContext(ctx))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	mw.ServeHTTP(second, reserveRequest("order-7", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.calls)
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	store := newMemoryStore()
	h := &countingHandler{}
	body := `{"note":"` + strings.Repeat("x", validators.MaxBodyBytes) + `"}`

	rec := httptest.NewRecorder()
	Idempotency(store, time.Minute, nil)(h).ServeHTTP(rec, reserveRequest("order-8", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	assert.Zero(t, h.calls)
	assert.Empty(t, store.data)
}
