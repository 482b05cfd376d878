package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ratedesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(config.BackendConfig{
		BaseURL:      server.URL,
		APIToken:     "test-token",
		FetchRetries: 2,
	}, nil)
	c.retryDelay = time.Millisecond
	return c, server
}

func TestFetchCalendar(t *testing.T) {
	var gotQuery string
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pricing/api/inventory/calendar/", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		// One priced day, one day with a null (unconfigured) price.
		_, _ = w.Write([]byte(`[
			{"date":"2024-07-10","price":500000,"extra_price":50000,"child_price":25000,"stock":2},
			{"date":"2024-07-11","price":null,"extra_price":null,"child_price":null,"stock":5}
		]`))
	}))

	records, err := c.FetchCalendar(context.Background(), 12, 3, "2024-06-21", "2024-07-21")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Contains(t, gotQuery, "room=12")
	assert.Contains(t, gotQuery, "board_type_id=3")
	assert.Contains(t, gotQuery, "start_date=2024-06-21")
	assert.Contains(t, gotQuery, "end_date=2024-07-21")

	assert.Equal(t, int64(500000), records[0].Price)
	assert.Equal(t, 2, records[0].Stock)

	// Null price collapses to zero, which every predicate treats as "no rate".
	assert.Equal(t, int64(0), records[1].Price)
	assert.False(t, records[1].SoldOut())
}

func TestUpdateStockBody(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pricing/api/inventory/update-stock/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := c.UpdateStock(context.Background(), 12, "2024-07-10", "2024-07-10", 0)
	require.NoError(t, err)

	assert.Equal(t, float64(12), got["room"])
	assert.Equal(t, "2024-07-10", got["start_date"])
	assert.Equal(t, "2024-07-10", got["end_date"])
	assert.Equal(t, float64(0), got["quantity"])
}

func TestUpdatePriceBody(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pricing/api/inventory/update-price/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := c.UpdatePrice(context.Background(), 12, "2024-07-10", "2024-07-12", 3, 500000, 50000, 25000)
	require.NoError(t, err)

	assert.Equal(t, float64(3), got["board_type"])
	assert.Equal(t, float64(500000), got["price"])
	assert.Equal(t, float64(50000), got["extra_price"])
	assert.Equal(t, float64(25000), got["child_price"])
}

func TestBoardTypesAndRooms(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/hotels/board-types/":
			_, _ = w.Write([]byte(`[{"id":3,"name":"Bed & Breakfast","code":"BB"}]`))
		case "/api/hotels/7/rooms/":
			_, _ = w.Write([]byte(`[{"id":12,"name":"Double Standard"}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	boards, err := c.BoardTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "BB", boards[0].Code)

	rooms, err := c.Rooms(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, int64(12), rooms[0].ID)
}

func TestFetchRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.FetchCalendar(context.Background(), 1, 1, "2024-07-01", "2024-07-31")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := c.FetchCalendar(context.Background(), 1, 1, "2024-07-01", "2024-07-31")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWritesAreNeverRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.UpdateStock(context.Background(), 1, "2024-07-01", "2024-07-01", 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
