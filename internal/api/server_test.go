package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciusandi/bumbootools/internal/config"
	"github.com/luciusandi/bumbootools/internal/storage"
	"github.com/luciusandi/bumbootools/internal/types"
)

// memStore serves canned records and captures the last query.
type memStore struct {
	records   []types.ProductRecord
	lastQuery storage.Query
	fail      bool
}

func (m *memStore) Upsert(context.Context, []types.ProductRecord) error { return nil }

func (m *memStore) ReadWindow(_ context.Context, q storage.Query) ([]types.ProductRecord, error) {
	if m.fail {
		return nil, errors.New("backend down")
	}
	m.lastQuery = q
	var out []types.ProductRecord
	for _, rec := range m.records {
		if len(q.Brands) > 0 && rec.Brand != q.Brands[0] {
			continue
		}
		if len(q.Sites) > 0 && rec.Site != q.Sites[0] {
			continue
		}
		if !q.Since.IsZero() && rec.CollectedAt.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && rec.CollectedAt.After(q.Until) {
			continue
		}
		out = append(out, rec)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }
func (m *memStore) Name() string { return "mem" }

func record(brand, description, site string, price float64, daysAgo int) types.ProductRecord {
	rec := types.NewRecord(brand, description, site)
	rec.Size = "10 x 220"
	rec.Price = types.Float64Ptr(price)
	rec.CollectedAt = time.Now().UTC().AddDate(0, 0, -daysAgo)
	return rec
}

func newTestServer(store storage.Store) *Server {
	cfg := config.DefaultConfig()
	cfg.API.User = "bumboo"
	cfg.API.Pass = "hunter2"
	cfg.API.AllowedOrigins = []string{"https://ui.example.com"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, store, logger)
}

func get(t *testing.T, srv *Server, path string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		req.SetBasicAuth("bumboo", "hunter2")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthRequiresAuth(t *testing.T) {
	srv := newTestServer(&memStore{})

	w := get(t, srv, "/api/health", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Basic", w.Header().Get("WWW-Authenticate"))

	w = get(t, srv, "/api/health", true)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "mem", body["backend"])
}

func TestUnconfiguredCredentialsRefuse(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, &memStore{}, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.SetBasicAuth("anyone", "anything")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPricesFilters(t *testing.T) {
	store := &memStore{records: []types.ProductRecord{
		record("Kleenex", "Ultra Soft", "FairPrice", 9.50, 0),
		record("Paseo", "Royal Soft", "RedMart", 12.90, 0),
	}}
	srv := newTestServer(store)

	w := get(t, srv, "/api/prices?brand=Kleenex", true)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []types.ProductRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Kleenex", rows[0].Brand)
	assert.Equal(t, 500, store.lastQuery.Limit)
}

func TestPricesDateWindow(t *testing.T) {
	store := &memStore{}
	srv := newTestServer(store)

	w := get(t, srv, "/api/prices?date=2026-08-30", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), store.lastQuery.Since)
	assert.True(t, store.lastQuery.Until.Before(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)))

	w = get(t, srv, "/api/prices?date=30-08-2026", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPricesLimitValidation(t *testing.T) {
	srv := newTestServer(&memStore{})

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/prices?limit=0", true).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/prices?limit=9999", true).Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/prices?limit=100", true).Code)
}

func TestPricesEmptyResultIsArray(t *testing.T) {
	srv := newTestServer(&memStore{})
	w := get(t, srv, "/api/prices", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestPricesStorageFailure(t *testing.T) {
	srv := newTestServer(&memStore{fail: true})
	w := get(t, srv, "/api/prices", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProductsAggregation(t *testing.T) {
	store := &memStore{records: []types.ProductRecord{
		record("Kleenex", "Ultra Soft", "FairPrice", 9.00, 2),
		record("Kleenex", "Ultra Soft", "RedMart", 11.00, 1),
		record("Kleenex", "Ultra Soft", "FairPrice", 10.00, 0),
		record("Paseo", "Royal Soft", "RedMart", 12.90, 0),
	}}
	srv := newTestServer(store)

	w := get(t, srv, "/api/products", true)
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)

	var kleenex map[string]any
	for _, entry := range out {
		if entry["brand"] == "Kleenex" {
			kleenex = entry
		}
	}
	require.NotNil(t, kleenex)
	assert.Equal(t, float64(3), kleenex["count"])
	assert.Equal(t, float64(2), kleenex["sites_count"])
	assert.InDelta(t, 10.0, kleenex["avg_price"].(float64), 0.001)
	assert.Equal(t, 9.0, kleenex["min_price"])
	assert.Equal(t, 11.0, kleenex["max_price"])
	assert.Equal(t, 10.0, kleenex["latest_price"])
}

func TestProductsDaysValidation(t *testing.T) {
	srv := newTestServer(&memStore{})
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/products?days=0", true).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/products?days=100000", true).Code)
}

func TestPriceHistorySeries(t *testing.T) {
	store := &memStore{records: []types.ProductRecord{
		record("Kleenex", "Ultra Soft", "FairPrice", 9.00, 1),
		record("Kleenex", "Ultra Soft", "FairPrice", 11.00, 1),
		record("Kleenex", "Ultra Soft", "RedMart", 12.00, 1),
		record("Kleenex", "Ultra Soft", "Cold Storage", 8.50, 0),
		record("Kleenex", "Other Product", "FairPrice", 99.0, 0),
	}}
	srv := newTestServer(store)

	w := get(t, srv, "/api/price-history?brand=Kleenex&description=Ultra+Soft", true)
	require.Equal(t, http.StatusOK, w.Code)

	var series []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series, 2)

	yesterday := series[0]
	assert.Equal(t, float64(3), yesterday["count"])
	assert.InDelta(t, 10.0, yesterday["fairprice"].(float64), 0.001)
	assert.Equal(t, 12.0, yesterday["redmart"])
	assert.Nil(t, yesterday["coldStorage"])

	today := series[1]
	assert.Equal(t, float64(1), today["count"])
	assert.Equal(t, 8.5, today["coldStorage"])
}

func TestPriceHistoryRequiresProduct(t *testing.T) {
	srv := newTestServer(&memStore{})
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/price-history", true).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/price-history?brand=Kleenex", true).Code)
}

func TestCORSPreflightAndHeaders(t *testing.T) {
	srv := newTestServer(&memStore{})

	req := httptest.NewRequest(http.MethodOptions, "/api/prices", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/prices", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSiteField(t *testing.T) {
	cases := map[string]string{
		"FairPrice":    "fairprice",
		"fair-price":   "fairprice",
		"Cold Storage": "coldStorage",
		"RedMart":      "redmart",
		"Lazada SG":    "redmart",
		"Mustafa":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, siteField(in), "siteField(%q)", in)
	}
}
