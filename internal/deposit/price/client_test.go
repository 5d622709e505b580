package price

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"aurum/internal/deposit/models"
	"aurum/pkg/platform/circuit"
	"aurum/pkg/requestcontext"
)

func feed(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Convert(t *testing.T) {
	t.Run("fresh quote", func(t *testing.T) {
		srv := feed(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/convert", r.URL.Path)
			assert.Equal(t, "WETH", r.URL.Query().Get("from"))
			assert.Equal(t, "2000000000000000000", r.URL.Query().Get("amount"))
			_ = json.NewEncoder(w).Encode(map[string]any{"amount": "6400000000000000000000.9", "as_of": time.Now().UTC()})
		})
		c := New(srv.URL, WithRateLimit(rate.Inf, 1))

		got, err := c.Convert(context.Background(), "WETH", "USD", decimal.RequireFromString("2e18"))
		require.NoError(t, err)
		assert.Equal(t, "6400000000000000000000", got.String())
	})

	t.Run("stale flag", func(t *testing.T) {
		srv := feed(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"amount": "1", "stale": true})
		})
		_, err := New(srv.URL).Convert(context.Background(), "WETH", "USD", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, models.ErrStalePrice)
	})

	t.Run("old quote", func(t *testing.T) {
		srv := feed(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"amount": "1", "as_of": time.Now().Add(-time.Hour).UTC()})
		})
		_, err := New(srv.URL, WithMaxAge(time.Minute)).Convert(context.Background(), "WETH", "USD", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, models.ErrStalePrice)
	})
}

func TestClient_QuoteAgeUsesRequestTime(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := feed(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"amount": "7", "as_of": asOf})
	})
	c := New(srv.URL, WithMaxAge(5*time.Minute), WithRateLimit(rate.Inf, 1))

	got, err := c.Convert(requestcontext.WithTime(context.Background(), asOf.Add(4*time.Minute)), "WETH", "USD", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "7", got.String())

	_, err = c.Convert(requestcontext.WithTime(context.Background(), asOf.Add(6*time.Minute)), "WETH", "USD", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrStalePrice)
}

func TestClient_CircuitOpensAndRecovers(t *testing.T) {
	var healthy atomic.Bool
	var hits atomic.Int32
	srv := feed(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"amount": "5", "as_of": time.Now().UTC()})
	})
	now := time.Now()
	b := circuit.New("price-feed",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	c := New(srv.URL, WithBreaker(b), WithRateLimit(rate.Inf, 1))
	ctx := context.Background()

	_, err := c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrStalePrice)
	_, err = c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, b.IsOpen())
	require.Equal(t, int32(2), hits.Load())

	for range 5 {
		_, err = c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, models.ErrStalePrice)
	}
	assert.Equal(t, int32(2), hits.Load(), "open circuit must not reach the feed before the cooldown")

	// Trial after the cooldown still fails and restarts the window
	now = now.Add(time.Minute)
	_, err = c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrStalePrice)
	assert.Equal(t, int32(3), hits.Load())
	_, err = c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrStalePrice)
	assert.Equal(t, int32(3), hits.Load())

	healthy.Store(true)
	_, err = c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrStalePrice, "recovered feed is not consulted until the next window")
	assert.Equal(t, int32(3), hits.Load())

	now = now.Add(time.Minute)
	got, err := c.Convert(ctx, "WETH", "USD", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "5", got.String())
	assert.False(t, b.IsOpen())
	assert.Equal(t, int32(4), hits.Load())
}
