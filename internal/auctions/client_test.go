package auctions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyblock-price-lab/internal/ingestion"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fastRetries() ClientOption {
	return WithRetryDelay(time.Millisecond, 5*time.Millisecond)
}

func TestClient_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/skyblock/auctions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "secret", r.Header.Get("API-Key"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"page":          2,
			"totalPages":    40,
			"totalAuctions": 39000,
			"lastUpdated":   int64(1700000000000),
			"auctions": []map[string]interface{}{
				{
					"uuid":         "409a1e0f261a49849493278d6cd9305a",
					"auctioneer":   "347ef6c1daac45ed9d1fa02818cf0fb6",
					"start":        int64(1699999000000),
					"end":          int64(1700099000000),
					"item_name":    "[Lvl 100] Tiger",
					"tier":         "LEGENDARY",
					"starting_bid": int64(80000000),
					"item_bytes":   "H4sIAAAAAAAAAA==",
					"bin":          true,
				},
				{
					"uuid":         "b2",
					"item_name":    "Hyperion",
					"tier":         "LEGENDARY",
					"starting_bid": int64(5),
					"bin":          false,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("secret"))
	page, err := client.FetchPage(context.Background(), 2)
	require.NoError(t, err)

	assert.True(t, page.Success)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 40, page.TotalPages)
	assert.Equal(t, int64(1700000000000), page.LastUpdated)
	require.Len(t, page.Listings, 2)

	l := page.Listings[0]
	assert.Equal(t, "409a1e0f261a49849493278d6cd9305a", l.UUID)
	assert.Equal(t, "H4sIAAAAAAAAAA==", l.ItemBytes)
	assert.True(t, l.Bin)
	assert.Equal(t, int64(80000000), l.StartingBid)
	assert.Equal(t, int64(1699999000000), l.Start)
	assert.Equal(t, "LEGENDARY", l.Tier)
	assert.Equal(t, "[Lvl 100] Tiger", l.ItemName)
	assert.False(t, page.Listings[1].Bin)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "totalPages": 1, "lastUpdated": 5})
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetries())
	page, err := client.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.LastUpdated)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"success": false})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(2), fastRetries())
	_, err := client.FetchPage(context.Background(), 0)
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "cause": "Page not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, fastRetries())
	_, err := client.FetchPage(context.Background(), 99)
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, fastRetries())
	_, err := client.FetchPage(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
