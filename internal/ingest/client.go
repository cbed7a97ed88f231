package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client is a rate-limited client for the financials datatable API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rateLimiter
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

func (r *rateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastCall)
	if elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.lastCall = time.Now()
}

// NewClient creates a new financials API client.
func NewClient(baseURL, apiKey string, requestsPerSecond int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: newRateLimiter(requestsPerSecond),
	}
}

// FetchTable fetches data from a table with the given parameters.
// Handles pagination automatically and returns all rows.
func (c *Client) FetchTable(ctx context.Context, table string, params map[string]string) (*Response, error) {
	allData := &Response{}
	var cursorID *string

	for {
		resp, err := c.fetchPage(ctx, table, params, cursorID)
		if err != nil {
			return nil, err
		}

		// Merge columns (only needed on first page)
		if len(allData.Datatable.Columns) == 0 {
			allData.Datatable.Columns = resp.Datatable.Columns
		}

		allData.Datatable.Data = append(allData.Datatable.Data, resp.Datatable.Data...)

		if resp.Meta.NextCursorID == nil || *resp.Meta.NextCursorID == "" {
			break
		}
		cursorID = resp.Meta.NextCursorID
		log.Printf("Fetching next page (cursor: %s...)", (*cursorID)[:min(20, len(*cursorID))])
	}

	return allData, nil
}

// fetchPage fetches a single page of data.
func (c *Client) fetchPage(ctx context.Context, table string, params map[string]string, cursorID *string) (*Response, error) {
	u, err := url.Parse(fmt.Sprintf("%s/%s.json", c.baseURL, table))
	if err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}
	if cursorID != nil {
		q.Set("qopts.cursor_id", *cursorID)
	}
	u.RawQuery = q.Encode()

	c.limiter.Wait()

	// Make request with retries
	var resp *Response
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			log.Printf("Retry attempt %d after %v", attempt, backoff)
			time.Sleep(backoff)
		}

		resp, lastErr = c.doRequest(ctx, u.String())
		if lastErr == nil {
			return resp, nil
		}

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("Request failed (attempt %d): %v", attempt+1, lastErr)
	}

	return nil, fmt.Errorf("all retries failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &resp, nil
}

// FetchBanks fetches the bank universe from the BANKS listing table.
// If tickers is empty, fetches all banks.
func (c *Client) FetchBanks(ctx context.Context, tickers []string) ([]BankRow, error) {
	params := map[string]string{}

	if len(tickers) > 0 {
		params["ticker"] = strings.Join(tickers, ",")
	}

	resp, err := c.FetchTable(ctx, "FIIN/BANKS", params)
	if err != nil {
		return nil, fmt.Errorf("fetching banks: %w", err)
	}

	return ParseBanks(resp)
}

// FetchFinancials fetches statement rows for the given frequency ("Q" or
// "Y"). If tickers is empty, fetches all. If since is zero, fetches all
// history.
func (c *Client) FetchFinancials(ctx context.Context, tickers []string, freq string, since time.Time) ([]FinancialRow, error) {
	table := "FIIN/FA_QUARTERLY"
	if freq == "Y" {
		table = "FIIN/FA_ANNUAL"
	}

	params := make(map[string]string)
	if len(tickers) > 0 {
		params["ticker"] = strings.Join(tickers, ",")
	}
	if !since.IsZero() {
		params["lastupdated.gte"] = since.Format("2006-01-02")
	}

	resp, err := c.FetchTable(ctx, table, params)
	if err != nil {
		return nil, fmt.Errorf("fetching financials (%s): %w", freq, err)
	}

	return ParseFinancials(resp, freq)
}
