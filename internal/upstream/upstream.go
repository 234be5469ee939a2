// Package upstream implements the client for the US Treasury Fiscal Data API.
// It issues parameterized GET queries against dataset endpoints and returns
// the raw tabular records from the response's "data" array.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Dataset endpoint paths, relative to the service base URL.
const (
	DatasetDebtToPenny      = "v2/accounting/od/debt_to_penny"
	DatasetAvgInterestRates = "v2/accounting/od/avg_interest_rates"
	DatasetRatesOfExchange  = "v1/accounting/od/rates_of_exchange"
)

// DefaultBaseURL is the production Fiscal Data API base.
const DefaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"

// RawRecord is one untyped row as returned by the upstream API.
// Shape varies per dataset; fields are not validated here.
type RawRecord = map[string]any

// Params holds the query parameters supported by Fiscal Data endpoints.
// Zero values are omitted from the request URL.
type Params struct {
	Sort     string // field name, leading "-" for descending
	PageSize int    // page[size] result cap
	Filter   string // single predicate, "field:operator:value"
}

// UpstreamError reports a non-success HTTP status from the data source.
type UpstreamError struct {
	Status  int
	Dataset string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned HTTP %d", e.Dataset, e.Status)
}

// Client queries the Fiscal Data API. Each call is independent and
// stateless: no caching, no retries, no circuit breaking.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL. An empty baseURL selects
// the production API.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// NewWithHTTPClient creates a client with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL)
	if hc != nil {
		c.http = hc
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// queryResponse is the envelope every Fiscal Data endpoint returns.
type queryResponse struct {
	Data []RawRecord `json:"data"`
}

// Query issues a GET against the dataset endpoint with the given params
// and returns the records found in the response's "data" array. A missing
// "data" field yields an empty slice. A non-2xx status yields *UpstreamError.
func (c *Client) Query(ctx context.Context, dataset string, params Params) ([]RawRecord, error) {
	u := c.buildURL(dataset, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Dataset: dataset}
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", dataset, err)
	}
	if body.Data == nil {
		return []RawRecord{}, nil
	}
	return body.Data, nil
}

// buildURL appends the params as query parameters to baseURL + dataset.
// Filter values containing spaces are passed literally; url.Values handles
// the percent-encoding of the final string.
func (c *Client) buildURL(dataset string, params Params) string {
	v := url.Values{}
	if params.Sort != "" {
		v.Set("sort", params.Sort)
	}
	if params.PageSize > 0 {
		v.Set("page[size]", strconv.Itoa(params.PageSize))
	}
	if params.Filter != "" {
		v.Set("filter", params.Filter)
	}
	u := c.baseURL + "/" + dataset
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// EqFilter builds a "field:eq:value" filter predicate.
func EqFilter(field, value string) string {
	return field + ":eq:" + value
}
