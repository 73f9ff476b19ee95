package postgrest

import (
	"context"
	"net/http"
	"time"

	"command_center_backend/internal/registry"
	"command_center_backend/platform/logger"
)

// Store is the subset of Client used by capture and sync.
type Store interface {
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Upsert(ctx context.Context, table string, row Row, onConflict []string) ([]Row, error)
	Update(ctx context.Context, table, column string, value any, patch Row) error
	Select(ctx context.Context, table string, q SelectQuery) ([]Row, error)
}

// Provider hands out stores per registry key and credential tier.
// A nil Store means "not configured" and is never an error.
type Provider interface {
	Store(key string, elevated bool) Store
}

// Factory builds clients from the registry.
type Factory struct {
	reg        *registry.Registry
	httpClient *http.Client
	timeout    time.Duration
	log        *logger.Logger
}

// NewFactory creates a client factory. timeout bounds every store request.
func NewFactory(reg *registry.Registry, timeout time.Duration, log *logger.Logger) *Factory {
	return &Factory{
		reg:        reg,
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
		timeout:    timeout,
		log:        log,
	}
}

// Client returns a client for key using the elevated (service) credential
// when elevated is set, the low-privilege (anon) one otherwise. It returns
// nil when the entry is unknown, has no base URL or lacks the tier.
func (f *Factory) Client(key string, elevated bool) *Client {
	entry, ok := f.reg.Lookup(key)
	if !ok || entry.BaseURL == "" {
		f.log.Warn("database not configured", "database", key)
		return nil
	}

	credential, tier := entry.ReadCredential, "anon"
	if elevated {
		credential, tier = entry.WriteCredential, "service"
	}
	if credential == "" {
		f.log.Warn("database credential missing", "database", key, "tier", tier)
		return nil
	}

	return NewClient(entry.BaseURL, credential, f.httpClient, f.timeout)
}

// Store implements Provider.
func (f *Factory) Store(key string, elevated bool) Store {
	client := f.Client(key, elevated)
	if client == nil {
		return nil
	}
	return client
}

var _ Provider = (*Factory)(nil)
