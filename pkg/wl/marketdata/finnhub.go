package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/komsit37/watchlist/pkg/wl/types"
)

const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// ErrPermanent marks upstream failures that retrying cannot fix,
// such as a rejected API key or an unknown endpoint.
var ErrPermanent = errors.New("permanent upstream error")

// FinnhubClient talks to the Finnhub REST API.
type FinnhubClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewFinnhubClient returns a client for baseURL (DefaultFinnhubURL when empty).
// A nil httpClient uses a client with a 15s timeout.
func NewFinnhubClient(baseURL, apiKey string, httpClient *http.Client) *FinnhubClient {
	if baseURL == "" {
		baseURL = DefaultFinnhubURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &FinnhubClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

// quote payload, see https://finnhub.io/docs/api/quote
// {"c":261.74,"d":-1.1,"dp":-0.4185,"h":263.31,"l":260.68,"o":261.07,"pc":262.84,"t":1582641000}
type finnhubQuote struct {
	Current       *float64 `json:"c"`
	ChangePercent *float64 `json:"dp"`
}

// metric payload, only the two fields we display are decoded
type finnhubMetrics struct {
	Metric struct {
		MarketCapitalization *float64 `json:"marketCapitalization"`
		PENormalizedAnnual   *float64 `json:"peNormalizedAnnual"`
	} `json:"metric"`
}

type finnhubSearch struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

func (c *FinnhubClient) FetchQuote(ctx context.Context, sym string) (types.Quote, error) {
	var payload finnhubQuote
	if err := c.get(ctx, "/quote", url.Values{"symbol": {sym}}, &payload); err != nil {
		return types.Quote{}, err
	}
	return types.Quote{
		CurrentPrice:  deref(payload.Current),
		ChangePercent: deref(payload.ChangePercent),
	}, nil
}

func (c *FinnhubClient) FetchFundamentals(ctx context.Context, sym string) (types.Fundamentals, error) {
	var payload finnhubMetrics
	if err := c.get(ctx, "/stock/metric", url.Values{"symbol": {sym}, "metric": {"all"}}, &payload); err != nil {
		return types.Fundamentals{}, err
	}
	return types.Fundamentals{
		MarketCapitalization:    deref(payload.Metric.MarketCapitalization),
		PERatioNormalizedAnnual: deref(payload.Metric.PENormalizedAnnual),
	}, nil
}

// Search returns symbols matching query.
func (c *FinnhubClient) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var payload finnhubSearch
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &payload); err != nil {
		return nil, err
	}
	out := make([]types.SearchResult, 0, len(payload.Result))
	for _, r := range payload.Result {
		out = append(out, types.SearchResult{
			Symbol:        r.Symbol,
			DisplaySymbol: r.DisplaySymbol,
			Description:   r.Description,
			Type:          r.Type,
		})
	}
	return out, nil
}

// get performs a GET on path and decodes the JSON body into data.
func (c *FinnhubClient) get(ctx context.Context, path string, q url.Values, data any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: finnhub api key is not set: %w", types.ErrUpstreamFetch, ErrPermanent)
	}
	q.Set("token", c.apiKey)
	addr := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrUpstreamFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	// every call must reach the provider
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", types.ErrUpstreamFetch, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("%w: GET %s: %s", types.ErrUpstreamFetch, path, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", err, ErrPermanent)
		}
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("%w: decode %s: %v", types.ErrUpstreamFetch, path, err)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
