// Package postgrest provides the HTTP client for tenant stores exposed over a
// PostgREST-compatible REST interface (Supabase projects).
package postgrest

import (
	"bytes"
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
)

const restPrefix = "/rest/v1/"

// Row is a single table row as returned by the store.
type Row map[string]any

// ID returns the row's local identifier, or nil when absent.
func (r Row) ID() any {
	return r["id"]
}

// IDString renders the identifier for logs and ledgers.
func (r Row) IDString() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Error is a non-2xx answer from the store.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, msg)
}

// ErrEmptyResult is returned when a write asked for a representation but the
// store answered with no rows.
var ErrEmptyResult = errors.New("postgrest: write returned no rows")

// SelectQuery narrows a Select call.
type SelectQuery struct {
	// Since keeps rows with created_at >= Since when non-zero.
	Since time.Time
	// Limit caps the number of rows; zero means no limit.
	Limit int
	// OrderBy is the column rows are sorted ascending by. Defaults to created_at.
	OrderBy string
}

// Client talks to a single store with a single credential.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client for baseURL authenticated with apiKey.
// timeout bounds each request on top of the caller's context.
func NewClient(baseURL, apiKey string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Insert writes row into table and returns the stored representation.
func (c *Client) Insert(ctx context.Context, table string, row Row) (Row, error) {
	rows, err := c.write(ctx, table, row, nil, "return=representation")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}
	return rows[0], nil
}

// Upsert inserts row or merges it into the row that collides on onConflict.
func (c *Client) Upsert(ctx context.Context, table string, row Row, onConflict []string) ([]Row, error) {
	params := url.Values{}
	if len(onConflict) > 0 {
		params.Set("on_conflict", strings.Join(onConflict, ","))
	}
	rows, err := c.write(ctx, table, row, params, "resolution=merge-duplicates,return=representation")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}
	return rows, nil
}

// Update patches the rows of table whose column equals value.
func (c *Client) Update(ctx context.Context, table, column string, value any, patch Row) error {
	params := url.Values{}
	params.Set(column, "eq."+fmt.Sprint(value))

	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, table, params, body, "return=minimal")
	return err
}

// Select reads rows of table ordered ascending.
func (c *Client) Select(ctx context.Context, table string, q SelectQuery) ([]Row, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}

	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", orderBy+".asc")
	if !q.Since.IsZero() {
		params.Set("created_at", "gte."+q.Since.UTC().Format(time.RFC3339Nano))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	data, err := c.do(ctx, http.MethodGet, table, params, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func (c *Client) write(ctx context.Context, table string, row Row, params url.Values, prefer string) ([]Row, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, table, params, body, prefer)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, body []byte, prefer string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := c.baseURL + restPrefix + url.PathEscape(table)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		if len(data) > 0 && json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}

	return data, nil
}

func decodeRows(data []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	// Single-object representations are returned for some Prefer combinations.
	if trimmed[0] == '{' {
		var row Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		return []Row{row}, nil
	}

	var rows []Row
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}
