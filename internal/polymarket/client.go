// Package polymarket resolves asset (token) ids to market metadata via the
// Gamma API: question text, outcome label, current price, and category.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/polyscout/polyscout/internal/models"
)

const (
	// Gamma /markets allows 300 requests per 10s; stay well under it.
	gammaRatePerSec = 10
	gammaBurst      = 5

	// Token ids per /markets request.
	batchSize = 20
)

// Client is the rate-limited Gamma API client. Resolutions are cached for
// the lifetime of the process; Polymarket token ids never change meaning.
type Client struct {
	gammaAPIURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryBase   time.Duration

	cache map[string]models.AssetInfo
}

// NewClient creates a Gamma client. An empty gammaAPIURL uses production.
func NewClient(gammaAPIURL string, timeout time.Duration, maxRetries int) *Client {
	if gammaAPIURL == "" {
		gammaAPIURL = "https://gamma-api.polymarket.com"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		gammaAPIURL: gammaAPIURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(gammaRatePerSec, gammaBurst),
		maxRetries:  maxRetries,
		retryBase:   time.Second,
		cache:       make(map[string]models.AssetInfo),
	}
}

// gammaMarket is the wire shape of a market from the Gamma API. The outcome
// and token arrays come back as JSON-encoded strings inside JSON.
type gammaMarket struct {
	Question      string `json:"question"`
	Outcomes      string `json:"outcomes"`      // "[\"Yes\", \"No\"]"
	OutcomePrices string `json:"outcomePrices"` // "[\"0.75\", \"0.25\"]"
	ClobTokenIds  string `json:"clobTokenIds"`  // "[\"token1\", \"token2\"]"
}

// ResolveAssetIDs resolves the given asset ids to market metadata.
// Best-effort: ids absent from the result stay unresolved and the caller is
// expected to retry them on a later cycle. Already-cached ids do not hit the
// API again.
func (c *Client) ResolveAssetIDs(ctx context.Context, ids []string) (map[string]models.AssetInfo, error) {
	result := make(map[string]models.AssetInfo, len(ids))

	var missing []string
	for _, id := range ids {
		if info, ok := c.cache[id]; ok {
			result[id] = info
		} else {
			missing = append(missing, id)
		}
	}

	for start := 0; start < len(missing); start += batchSize {
		end := min(start+batchSize, len(missing))
		resolved, err := c.fetchBatch(ctx, missing[start:end])
		if err != nil {
			// Partial results are still useful; report the error so the
			// caller can retry the remainder next cycle.
			return result, err
		}
		for id, info := range resolved {
			c.cache[id] = info
			result[id] = info
		}
	}

	return result, nil
}

// Cached returns the cached resolution for an asset id, if any.
func (c *Client) Cached(id string) (models.AssetInfo, bool) {
	info, ok := c.cache[id]
	return info, ok
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) (map[string]models.AssetInfo, error) {
	u, err := url.Parse(c.gammaAPIURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("clob_token_ids", strings.Join(ids, ","))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	defer resp.Body.Close()

	var markets []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	resolved := make(map[string]models.AssetInfo)
	for _, m := range markets {
		for id, info := range parseMarketAssets(m) {
			if requested[id] {
				resolved[id] = info
			}
		}
	}
	return resolved, nil
}

// parseMarketAssets maps each of a market's token ids to its outcome label
// and price. Markets with malformed embedded arrays yield nothing.
func parseMarketAssets(m gammaMarket) map[string]models.AssetInfo {
	var tokenIDs, outcomes, prices []string
	if err := json.Unmarshal([]byte(m.ClobTokenIds), &tokenIDs); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return nil
	}

	category := Categorize(m.Question)

	assets := make(map[string]models.AssetInfo, len(tokenIDs))
	for i, id := range tokenIDs {
		info := models.AssetInfo{
			Question: m.Question,
			Outcome:  models.UnresolvedOutcome,
			Category: category,
		}
		if i < len(outcomes) {
			info.Outcome = outcomes[i]
		}
		if i < len(prices) {
			if p, err := strconv.ParseFloat(prices[i], 64); err == nil {
				info.Price = p
			}
		}
		assets[id] = info
	}
	return assets
}

// doRequest performs a rate-limited GET with linear-backoff retry on
// transport errors and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
