// Package postgrest reads residents and payments from a hosted PostgREST
// endpoint (the REST layer of a Supabase project).
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store"
)

// ClientConfig represents the configuration for the REST client.
type ClientConfig struct {
	BaseURL    string        // project URL, e.g. https://xyz.supabase.co
	APIKey     string        // anon key; sent as apikey and bearer token
	Schema     string        // optional Accept-Profile schema
	Timeout    time.Duration // Default: 10 seconds
	HTTPClient *http.Client  // optional, overrides Timeout
	Logger     *log.Logger   // optional; reports results cut by the server row limit
}

// Client is a read-only PostgREST client.
type Client struct {
	httpClient *http.Client
	restURL    string
	apiKey     string
	schema     string
	logger     *log.Logger
}

// APIError is a non-2xx response from the endpoint.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest error (status %d, %s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("postgrest error (status %d): %s", e.StatusCode, msg)
}

var _ store.Store = (*Client)(nil)

// NewClient creates a new client. BaseURL and APIKey are required.
func NewClient(config ClientConfig) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" || strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("postgrest: base url and api key are required: %w", store.ErrNotConfigured)
	}
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("postgrest: invalid base url %q", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	restURL := base.String()
	if !strings.HasSuffix(restURL, "/rest/v1") {
		restURL += "/rest/v1"
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Client{
		httpClient: httpClient,
		restURL:    restURL,
		apiKey:     config.APIKey,
		schema:     config.Schema,
		logger:     logger,
	}, nil
}

func (c *Client) AlleyValues(ctx context.Context) ([]string, error) {
	var rows []struct {
		Alley *string `json:"alley"`
	}
	if err := c.get(ctx, store.AlleysQuery(), &rows); err != nil {
		return nil, fmt.Errorf("list alleys: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Alley != nil {
			out = append(out, *r.Alley)
		}
	}
	return out, nil
}

func (c *Client) ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error) {
	rows := []core.Resident{}
	if err := c.get(ctx, store.ResidentsByAlleyQuery(alley), &rows); err != nil {
		return nil, fmt.Errorf("list residents of alley %s: %w", alley, err)
	}
	return rows, nil
}

func (c *Client) Resident(ctx context.Context, residentID string) (core.Resident, error) {
	var rows []core.Resident
	if err := c.get(ctx, store.ResidentQuery(residentID), &rows); err != nil {
		return core.Resident{}, fmt.Errorf("get resident %s: %w", residentID, err)
	}
	if len(rows) == 0 {
		return core.Resident{}, core.ErrResidentNotFound
	}
	return rows[0], nil
}

func (c *Client) PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error) {
	rows := []core.Payment{}
	if err := c.get(ctx, store.PaymentsByResidentQuery(residentID), &rows); err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", residentID, err)
	}
	return rows, nil
}

// Encode renders q as a PostgREST query string.
func Encode(q store.Query) url.Values {
	params := url.Values{}
	if len(q.Columns) == 0 {
		params.Set("select", "*")
	} else {
		params.Set("select", strings.Join(q.Columns, ","))
	}
	for _, f := range q.Filters {
		params.Add(f.Column, "eq."+f.Value)
	}
	if len(q.Orders) > 0 {
		keys := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			k := o.Column + ".asc"
			if o.Desc {
				k = o.Column + ".desc"
			}
			if o.NullsLast {
				k += ".nullslast"
			}
			keys = append(keys, k)
		}
		params.Set("order", strings.Join(keys, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

func (c *Client) get(ctx context.Context, q store.Query, out any) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.restURL, q.Table, Encode(q).Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Prefer", "count=exact")
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if returned, total, ok := ParseContentRange(resp.Header.Get("Content-Range")); ok && returned < total {
		c.logger.WarnContext(ctx, "Result truncated by server row limit",
			"table", q.Table, log.FieldCount, returned, log.FieldTotal, total)
	}
	return nil
}

// ParseContentRange reads a PostgREST Content-Range header such as
// "0-999/1500" or "*/0" into the number of rows returned and the total
// matching rows. ok is false when the total is unknown.
func ParseContentRange(h string) (returned, total int, ok bool) {
	span, count, found := strings.Cut(strings.TrimSpace(h), "/")
	if !found || count == "*" {
		return 0, 0, false
	}
	total, err := strconv.Atoi(count)
	if err != nil {
		return 0, 0, false
	}
	if span == "*" {
		return 0, total, true
	}
	first, last, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(first)
	end, err2 := strconv.Atoi(last)
	if err1 != nil || err2 != nil || end < start {
		return 0, 0, false
	}
	return end - start + 1, total, true
}

// parseError parses an error response body.
func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// IsAPIError reports whether err carries an APIError with the given status.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
