package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

func newFinnhubServer(t *testing.T, routes map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestFinnhubFetchQuote(t *testing.T) {
	srv, calls := newFinnhubServer(t, map[string]string{
		"/quote": `{"c":261.74,"d":-1.1,"dp":-0.4185,"h":263.31,"l":260.68,"o":261.07,"pc":262.84,"t":1582641000}`,
	})
	c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

	q, err := c.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 261.74, q.CurrentPrice)
	assert.Equal(t, -0.4185, q.ChangePercent)

	// no caching: a second call goes to the network again
	_, err = c.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFinnhubFetchQuoteNulls(t *testing.T) {
	srv, _ := newFinnhubServer(t, map[string]string{
		"/quote": `{"c":0,"d":null,"dp":null}`,
	})
	c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

	q, err := c.FetchQuote(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Equal(t, types.Quote{}, q)
}

func TestFinnhubFetchFundamentals(t *testing.T) {
	srv, _ := newFinnhubServer(t, map[string]string{
		"/stock/metric": `{"metric":{"marketCapitalization":2500,"peNormalizedAnnual":31.25,"beta":1.2},"series":{},"symbol":"AAPL"}`,
	})
	c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

	f, err := c.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, f.MarketCapitalization)
	assert.Equal(t, 31.25, f.PERatioNormalizedAnnual)
}

func TestFinnhubFetchFundamentalsMissingMetric(t *testing.T) {
	srv, _ := newFinnhubServer(t, map[string]string{
		"/stock/metric": `{}`,
	})
	c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

	f, err := c.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, types.Fundamentals{}, f)
}

func TestFinnhubErrors(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()
		c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

		_, err := c.FetchQuote(context.Background(), "AAPL")
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrUpstreamFetch)
		assert.NotErrorIs(t, err, ErrPermanent)
	})

	t.Run("unauthorized is permanent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()
		c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

		_, err := c.FetchFundamentals(context.Background(), "AAPL")
		assert.ErrorIs(t, err, ErrPermanent)
	})

	t.Run("malformed json", func(t *testing.T) {
		srv, _ := newFinnhubServer(t, map[string]string{"/quote": `{"c":`})
		c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

		_, err := c.FetchQuote(context.Background(), "AAPL")
		assert.ErrorIs(t, err, types.ErrUpstreamFetch)
	})

	t.Run("missing api key", func(t *testing.T) {
		c := NewFinnhubClient("http://127.0.0.1:1", "", nil)
		_, err := c.FetchQuote(context.Background(), "AAPL")
		assert.ErrorIs(t, err, types.ErrUpstreamFetch)
		assert.ErrorIs(t, err, ErrPermanent)
	})
}

func TestFinnhubSearch(t *testing.T) {
	srv, _ := newFinnhubServer(t, map[string]string{
		"/search": `{"count":2,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},{"description":"APPLE HOSPITALITY REIT INC","displaySymbol":"APLE","symbol":"APLE","type":"Common Stock"}]}`,
	})
	c := NewFinnhubClient(srv.URL, "test-key", srv.Client())

	res, err := c.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "AAPL", res[0].Symbol)
	assert.Equal(t, "APPLE INC", res[0].Description)

	res, err = c.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, res)
}
