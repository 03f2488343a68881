package searchindex

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRetryAfter is how long a failed check is trusted before Ready checks again.
const DefaultRetryAfter = 30 * time.Second

// Connection tracks whether the index is configured and was reachable at the last check.
// It is shared process-wide and read once per sync operation.
type Connection struct {
	client     Client
	logger     *zap.Logger
	retryAfter time.Duration

	mu        sync.RWMutex
	checked   bool
	lastErr   error
	checkedAt time.Time
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithRetryAfter sets how long a failed check is cached. Zero or less caches it until
// the next explicit Check.
func WithRetryAfter(d time.Duration) ConnectionOption {
	return func(c *Connection) { c.retryAfter = d }
}

// NewConnection wraps client. A nil client means the index is not configured.
func NewConnection(client Client, logger *zap.Logger, opts ...ConnectionOption) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Connection{client: client, logger: logger, retryAfter: DefaultRetryAfter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the wrapped client, which may be nil.
func (c *Connection) Client() Client { return c.client }

// Check verifies the client and records the result.
func (c *Connection) Check(ctx context.Context) error {
	var err error
	if c.client == nil {
		err = ErrNotConfigured
	} else {
		err = c.client.Verify(ctx)
		if err != nil && !errors.Is(err, ErrNotConfigured) && !errors.Is(err, ErrUnreachable) {
			err = errors.Join(ErrUnreachable, err)
		}
	}
	c.mu.Lock()
	c.checked = true
	c.lastErr = err
	c.checkedAt = time.Now()
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("search index connection check failed", zap.Error(err))
	} else {
		c.logger.Debug("search index connection ok", zap.String("provider", c.client.Name()))
	}
	return err
}

// Ready returns nil when the last check succeeded. It checks if no check has run yet,
// and again once a failed check is older than the retry interval. A missing client is
// never re-checked.
func (c *Connection) Ready(ctx context.Context) error {
	c.mu.RLock()
	checked, err, checkedAt := c.checked, c.lastErr, c.checkedAt
	c.mu.RUnlock()
	if !checked {
		return c.Check(ctx)
	}
	if err != nil && c.client != nil && c.retryAfter > 0 && time.Since(checkedAt) >= c.retryAfter {
		c.logger.Debug("rechecking search index connection", zap.Duration("since_failure", time.Since(checkedAt)))
		return c.Check(ctx)
	}
	return err
}

// Status describes the last connection check.
type Status struct {
	Provider  string    `json:"provider,omitempty"`
	Connected bool      `json:"connected"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// Status returns the result of the last check without contacting the service.
func (c *Connection) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{Connected: c.checked && c.lastErr == nil, CheckedAt: c.checkedAt}
	if c.client != nil {
		s.Provider = c.client.Name()
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}
