package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/docsync/internal/models"
)

// DefaultRequiredACLs are the API key permissions needed to sync and reindex.
var DefaultRequiredACLs = []string{"addObject", "deleteObject", "listIndexes", "deleteIndex", "settings", "editSettings"}

// AlgoliaConfig holds credentials and behavior for the Algolia client.
type AlgoliaConfig struct {
	AppID       string
	AdminAPIKey string
	// RequiredACLs are checked by Verify. Defaults to DefaultRequiredACLs.
	RequiredACLs []string
	// RequestsPerSecond throttles remote calls; zero disables throttling.
	RequestsPerSecond float64
	// WaitForTasks blocks each write until Algolia has applied it.
	WaitForTasks bool
}

// AlgoliaClient implements Client on the Algolia search API.
type AlgoliaClient struct {
	cfg     AlgoliaConfig
	client  *search.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu      sync.Mutex
	indices map[string]*search.Index
}

// AlgoliaOption configures an AlgoliaClient.
type AlgoliaOption func(*AlgoliaClient)

// WithAlgoliaLogger sets a logger for request-level debug output.
func WithAlgoliaLogger(l *zap.Logger) AlgoliaOption {
	return func(c *AlgoliaClient) { c.logger = l }
}

// NewAlgoliaClient creates a client. It returns ErrNotConfigured when credentials are missing.
func NewAlgoliaClient(cfg AlgoliaConfig, opts ...AlgoliaOption) (*AlgoliaClient, error) {
	if cfg.AppID == "" || cfg.AdminAPIKey == "" {
		return nil, fmt.Errorf("%w: application id and admin api key are required", ErrNotConfigured)
	}
	if len(cfg.RequiredACLs) == 0 {
		cfg.RequiredACLs = DefaultRequiredACLs
	}
	c := &AlgoliaClient{
		cfg:     cfg,
		client:  search.NewClient(cfg.AppID, cfg.AdminAPIKey),
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  zap.NewNop(),
		indices: make(map[string]*search.Index),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name returns "algolia".
func (c *AlgoliaClient) Name() string { return "algolia" }

func (c *AlgoliaClient) index(name string) *search.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indices[name]
	if !ok {
		idx = c.client.InitIndex(name)
		c.indices[name] = idx
	}
	return idx
}

func (c *AlgoliaClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

type waiter interface {
	Wait(opts ...interface{}) error
}

func (c *AlgoliaClient) finish(ctx context.Context, op string, res waiter) error {
	if !c.cfg.WaitForTasks {
		return nil
	}
	if err := res.Wait(ctx); err != nil {
		return fmt.Errorf("algolia %s: wait for task: %w", op, err)
	}
	return nil
}

// Upsert saves records. The SDK splits large sets into batches.
func (c *AlgoliaClient) Upsert(ctx context.Context, index string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	objects := make([]map[string]interface{}, len(records))
	for i, r := range records {
		objects[i] = r.Flatten()
	}
	c.logger.Debug("algolia save objects", zap.String("index", index), zap.Int("count", len(objects)))
	res, err := c.index(index).SaveObjects(objects, ctx)
	if err != nil {
		return fmt.Errorf("algolia save objects: %w", err)
	}
	return c.finish(ctx, "save objects", res)
}

// DeleteByFilter deletes records matching filter.
func (c *AlgoliaClient) DeleteByFilter(ctx context.Context, index, filter string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.logger.Debug("algolia delete by", zap.String("index", index), zap.String("filter", filter))
	res, err := c.index(index).DeleteBy(opt.Filters(filter), ctx)
	if err != nil {
		return fmt.Errorf("algolia delete by filter: %w", err)
	}
	return c.finish(ctx, "delete by", res)
}

// DeleteByIDs deletes records by objectID.
func (c *AlgoliaClient) DeleteByIDs(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	res, err := c.index(index).DeleteObjects(ids, ctx)
	if err != nil {
		return fmt.Errorf("algolia delete objects: %w", err)
	}
	return c.finish(ctx, "delete objects", res)
}

// Clear removes all records but keeps settings.
func (c *AlgoliaClient) Clear(ctx context.Context, index string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.logger.Debug("algolia clear objects", zap.String("index", index))
	res, err := c.index(index).ClearObjects(ctx)
	if err != nil {
		return fmt.Errorf("algolia clear objects: %w", err)
	}
	return c.finish(ctx, "clear objects", res)
}

// SetSettings pushes index settings.
func (c *AlgoliaClient) SetSettings(ctx context.Context, index string, settings Settings) error {
	s, err := toAlgoliaSettings(settings)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	res, err := c.index(index).SetSettings(s, ctx)
	if err != nil {
		return fmt.Errorf("algolia set settings: %w", err)
	}
	return c.finish(ctx, "set settings", res)
}

func toAlgoliaSettings(settings Settings) (search.Settings, error) {
	var s search.Settings
	data, err := json.Marshal(settings)
	if err != nil {
		return s, fmt.Errorf("encode settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Verify fetches the admin key and checks it carries the required ACLs.
func (c *AlgoliaClient) Verify(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	key, err := c.client.GetAPIKey(c.cfg.AdminAPIKey, ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if missing := MissingACLs(key.ACL, c.cfg.RequiredACLs); len(missing) > 0 {
		return fmt.Errorf("%w: api key is missing acls %v", ErrUnreachable, missing)
	}
	return nil
}

// Close releases nothing; the SDK holds no long-lived resources.
func (c *AlgoliaClient) Close() error { return nil }

// MissingACLs returns the entries of required absent from have.
func MissingACLs(have, required []string) []string {
	set := make(map[string]bool, len(have))
	for _, a := range have {
		set[a] = true
	}
	var missing []string
	for _, r := range required {
		if !set[r] {
			missing = append(missing, r)
		}
	}
	return missing
}
