package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"command_center_backend/platform/logger"

	"golang.org/x/time/rate"
)

// HTTPClient posts leads to the CRM REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewHTTPClient creates a CRM client throttled to ratePerSec requests.
func NewHTTPClient(baseURL, apiKey string, ratePerSec float64, timeout time.Duration, log *logger.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = max(1, int(ratePerSec))
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}
}

type createLeadResponse struct {
	ID     json.RawMessage `json:"id"`
	LeadID json.RawMessage `json:"leadId"`
}

// CreateLead posts payload to {baseURL}/leads.
func (c *HTTPClient) CreateLead(ctx context.Context, payload LeadPayload) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("crm rate limit: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leads", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("crm request failed", "error", err)
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Error("crm unauthorized", "status", resp.StatusCode)
		return "", fmt.Errorf("unauthorized: invalid CRM API key")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.log.Error("crm upstream error", "status", resp.StatusCode, "body", string(raw))
		return "", fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var decoded createLeadResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}
	id := rawID(decoded.LeadID)
	if id == "" {
		id = rawID(decoded.ID)
	}
	return id, nil
}

// rawID accepts both string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// DryRunClient logs payloads instead of sending them. It stands in for the
// CRM when CRM_API_URL is not set.
type DryRunClient struct {
	log *logger.Logger
	now func() time.Time
}

// NewDryRunClient creates a client that only logs.
func NewDryRunClient(log *logger.Logger) *DryRunClient {
	return &DryRunClient{log: log, now: time.Now}
}

// CreateLead logs the payload and returns a synthetic lead id.
func (c *DryRunClient) CreateLead(_ context.Context, payload LeadPayload) (string, error) {
	c.log.Info("crm disabled, lead not sent",
		"source", payload.Source,
		"sourceId", payload.SourceID,
		"type", payload.LeadData.Type,
		"score", payload.LeadData.Score,
	)
	return "pitch_" + strconv.FormatInt(c.now().UnixMilli(), 10), nil
}
