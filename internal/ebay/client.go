// Package ebay is the upstream marketplace client: credential rotation,
// token management, the daily rate governor, and the search / item /
// bulk-item endpoints with detail caching.
package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

const (
	defaultBaseURL = "https://api.ebay.com"

	searchPath = "/buy/browse/v1/item_summary/search"
	itemPath   = "/buy/browse/v1/item/"

	marketplaceID = "EBAY_US"

	searchTimeout = 30 * time.Second
	bulkTimeout   = 30 * time.Second

	// bulkBatchSize is the bulk endpoint's maximum id count.
	bulkBatchSize = 20
)

// Client talks to the upstream browse API. Every call obtains a fresh
// credential from the pool; tasks never own credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pool       *Pool
	tokens     *TokenCache
	governor   *Governor
	store      *store.Store
	log        *slog.Logger

	statMu      sync.Mutex
	cacheHits   int
	cacheMisses int
}

// ClientConfig wires a Client. BaseURL defaults to the production API.
type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	TokenURL   string
	Pool       *Pool
	Store      *store.Store
	DailyLimit int
	Log        *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = base + "/identity/v1/oauth2/token"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: searchTimeout}
	}
	limit := cfg.DailyLimit
	if limit <= 0 {
		limit = 4500
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(base, "/"),
		pool:       cfg.Pool,
		tokens:     NewTokenCache(httpClient, tokenURL),
		governor:   NewGovernor(limit),
		store:      cfg.Store,
		log:        cfg.Log.With("component", "ebay"),
	}
	// A disabled credential's token must not be reused.
	c.pool.onDisable = c.tokens.Evict
	return c
}

// Governor exposes the daily budget for the health endpoint.
func (c *Client) Governor() *Governor { return c.governor }

// Pool exposes the credential pool for the health endpoint.
func (c *Client) Pool() *Pool { return c.pool }

// CacheStats returns and the pipeline resets per-task hit counters.
func (c *Client) CacheStats() (hits, misses int) {
	c.statMu.Lock()
	defer c.statMu.Unlock()
	return c.cacheHits, c.cacheMisses
}

func (c *Client) ResetCacheStats() {
	c.statMu.Lock()
	c.cacheHits, c.cacheMisses = 0, 0
	c.statMu.Unlock()
}

func (c *Client) countCache(hit bool) {
	c.statMu.Lock()
	if hit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
	c.statMu.Unlock()
}

// Search runs one search for the task. When the daily budget is spent it
// returns an empty slice, not an error. A 429 cools the credential and
// surfaces as RateLimitError.
func (c *Client) Search(ctx context.Context, task *model.Task, override string) ([]ItemSummary, error) {
	if !c.governor.CanMakeCall() {
		c.log.Warn("daily call budget spent, skipping search", "task", task.ID)
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	query := BuildQuery(task, override)
	body, err := c.get(ctx, searchPath+"?"+query.Encode(), "search")
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ebay: decode search response: %w", err)
	}
	return out.ItemSummaries, nil
}

// FetchItem returns one item's detail, serving from the 24 h cache when
// fresh and writing through on a miss.
func (c *Client) FetchItem(ctx context.Context, itemID string) (*ItemDetail, error) {
	if cached, err := c.store.GetCachedItem(ctx, itemID, time.Now().UTC()); err != nil {
		c.log.Warn("item cache read", "item", itemID, "error", err)
	} else if cached != nil {
		c.countCache(true)
		return detailFromCache(cached), nil
	}
	c.countCache(false)

	if !c.governor.CanMakeCall() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	body, err := c.get(ctx, itemPath+url.PathEscape(itemID), "item")
	if err != nil {
		return nil, err
	}
	var detail ItemDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("ebay: decode item response: %w", err)
	}
	if detail.ItemID == "" {
		detail.ItemID = itemID
	}
	c.cacheWrite(ctx, &detail)
	return &detail, nil
}

// FetchItems bulk-fetches details for the given ids. Cached entries are
// served locally; uncached ids go to the bulk endpoint in batches of 20.
// A 403 on a batch falls back to per-item calls for that batch only. A
// 429 stops the remaining batches and propagates.
func (c *Client) FetchItems(ctx context.Context, ids []string) (map[string]*ItemDetail, error) {
	out := make(map[string]*ItemDetail, len(ids))
	var uncached []string
	now := time.Now().UTC()
	for _, id := range ids {
		cached, err := c.store.GetCachedItem(ctx, id, now)
		if err != nil {
			c.log.Warn("item cache read", "item", id, "error", err)
		}
		if cached != nil {
			c.countCache(true)
			out[id] = detailFromCache(cached)
			continue
		}
		c.countCache(false)
		uncached = append(uncached, id)
	}

	for start := 0; start < len(uncached); start += bulkBatchSize {
		end := start + bulkBatchSize
		if end > len(uncached) {
			end = len(uncached)
		}
		batch := uncached[start:end]
		if !c.governor.CanMakeCall() {
			c.log.Warn("daily call budget spent, stopping bulk fetch", "remaining", len(uncached)-start)
			return out, nil
		}
		details, err := c.fetchBatch(ctx, batch)
		if err != nil {
			if IsRateLimit(err) {
				return out, err
			}
			c.log.Warn("bulk batch failed", "size", len(batch), "error", err)
			continue
		}
		for _, d := range details {
			out[d.ItemID] = d
		}
	}
	return out, nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) ([]*ItemDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	path := "/buy/browse/v1/item?item_ids=" + url.QueryEscape(strings.Join(ids, ","))
	body, err := c.get(ctx, path, "bulk")
	if err != nil {
		var te *TransientError
		if errors.As(err, &te) && te.Status == http.StatusForbidden {
			// Bulk requires extra authorization some credentials lack.
			return c.fetchBatchSingly(ctx, ids)
		}
		return nil, err
	}
	var out bulkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ebay: decode bulk response: %w", err)
	}
	details := make([]*ItemDetail, 0, len(out.Items))
	for i := range out.Items {
		d := &out.Items[i]
		c.cacheWrite(ctx, d)
		details = append(details, d)
	}
	return details, nil
}

func (c *Client) fetchBatchSingly(ctx context.Context, ids []string) ([]*ItemDetail, error) {
	var details []*ItemDetail
	for _, id := range ids {
		d, err := c.FetchItem(ctx, id)
		if err != nil {
			if IsRateLimit(err) {
				return details, err
			}
			c.log.Warn("per-item fallback failed", "item", id, "error", err)
			continue
		}
		if d != nil {
			details = append(details, d)
		}
	}
	return details, nil
}

func (c *Client) cacheWrite(ctx context.Context, d *ItemDetail) {
	err := c.store.PutCachedItem(ctx, &model.CachedItem{
		EbayItemID: d.ItemID,
		Title:      d.Title,
		Aspects:    d.Aspects(),
	})
	if err != nil {
		c.log.Warn("item cache write", "item", d.ItemID, "error", err)
	}
}

// get performs one authorized call. On AuthError from the token endpoint
// the credential is disabled and the call retried once with another one.
func (c *Client) get(ctx context.Context, path, endpoint string) ([]byte, error) {
	body, err := c.getWithCredential(ctx, path, endpoint, "")
	var authErr *AuthError
	if errors.As(err, &authErr) {
		c.pool.MarkError(ctx, authErr.AppID)
		body, err = c.getWithCredential(ctx, path, endpoint, authErr.AppID)
		// The retry credential may be bad too; disable it before giving up.
		var retryErr *AuthError
		if errors.As(err, &retryErr) {
			c.pool.MarkError(ctx, retryErr.AppID)
		}
	}
	return body, err
}

func (c *Client) getWithCredential(ctx context.Context, path, endpoint, exclude string) ([]byte, error) {
	cred, err := c.pool.Next(exclude)
	if err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx, cred)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("ebay: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplaceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ebay: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logUsage(ctx, cred.AppID, endpoint)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.pool.MarkCooled(cred.AppID)
		return nil, &RateLimitError{AppID: cred.AppID}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransientError{Status: resp.StatusCode, Body: string(excerpt)}
	}
	return io.ReadAll(resp.Body)
}

// logUsage records the call against the credential and the usage log.
// Failures here never fail the call.
func (c *Client) logUsage(ctx context.Context, appID, endpoint string) {
	apiCallsTotal.WithLabelValues(endpoint).Inc()
	c.governor.Record()
	c.pool.RecordCall(ctx, appID)
	err := c.store.AppendAPIUsage(ctx, model.APIUsage{
		AppID:    appID,
		Endpoint: endpoint,
		Calls:    1,
		Day:      time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		c.log.Warn("usage log write", "error", err)
	}
}

// ParsePrice converts a wire money value to a float. Malformed values
// read as zero.
func ParsePrice(m Money) float64 {
	v, err := strconv.ParseFloat(m.Value, 64)
	if err != nil {
		return 0
	}
	return v
}

// ShippingCost returns the summary's first quoted shipping cost.
func (s *ItemSummary) ShippingCost() float64 {
	if len(s.ShippingOptions) == 0 {
		return 0
	}
	return ParsePrice(s.ShippingOptions[0].ShippingCost)
}

// SellerPercent parses the seller's feedback percentage.
func (s *ItemSummary) SellerPercent() float64 {
	v, err := strconv.ParseFloat(s.Seller.FeedbackPercentage, 64)
	if err != nil {
		return 0
	}
	return v
}

// CategoryID returns the summary's leaf category id, if any.
func (s *ItemSummary) CategoryID() string {
	if len(s.Categories) == 0 {
		return ""
	}
	return s.Categories[0].CategoryID
}
