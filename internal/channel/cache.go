package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shhac/soapbridge/internal/domain"
)

// FactoryCache is the process-wide cache of channel factories, keyed by
// (contract identity, endpoint URL, transport-configuration signature).
// Get-or-create is atomic: concurrent first requests for the same key share
// a single construction, so exactly one factory per key ever exists.
//
// The cache is an owned component, not a package singleton: it is constructed
// at process start, injected where needed, and torn down with Close at
// shutdown.
type FactoryCache struct {
	build  FactoryBuilder
	logger *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]Factory
	closed  bool
}

// NewFactoryCache creates an empty cache that constructs factories with build.
func NewFactoryCache(build FactoryBuilder, logger *slog.Logger) *FactoryCache {
	return &FactoryCache{
		build:   build,
		logger:  logger,
		entries: make(map[string]Factory),
	}
}

func cacheKey(contract, endpoint string, cfg domain.TransportConfig) string {
	return contract + "|" + endpoint + "|" + cfg.Signature()
}

// GetOrCreate returns the factory for the key, constructing it on first
// access. Construction failures are not cached; a later call retries.
func (c *FactoryCache) GetOrCreate(contract, endpoint string, cfg domain.TransportConfig) (Factory, error) {
	key := cacheKey(contract, endpoint, cfg)

	c.mu.RLock()
	f, ok := c.entries[key]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, errors.New("factory cache is closed")
	}
	if ok {
		return f, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// A previous flight may have stored the entry between our read
		// and this call.
		c.mu.RLock()
		f, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return f, nil
		}

		f, err := c.build(contract, endpoint, cfg)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = f.Close()
			return nil, errors.New("factory cache is closed")
		}
		c.entries[key] = f
		c.mu.Unlock()

		c.logger.Debug("channel factory created",
			slog.String("contract", contract),
			slog.String("endpoint", endpoint),
			slog.String("signature", cfg.Signature()),
		)
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create channel factory for %s at %s: %w", contract, endpoint, err)
	}

	if shared {
		c.logger.Debug("channel factory construction shared between concurrent calls",
			slog.String("contract", contract),
			slog.String("endpoint", endpoint),
		)
	}
	return v.(Factory), nil
}

// Len returns the number of cached factories.
func (c *FactoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close tears the cache down, closing every cached factory. Further
// GetOrCreate calls fail. Errors from individual factories are joined.
func (c *FactoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for key, f := range c.entries {
		if err := f.Close(); err != nil {
			c.logger.Warn("failed to close channel factory",
				slog.String("key", key),
				slog.Any("error", err),
			)
			errs = append(errs, err)
		}
	}
	c.entries = nil

	return errors.Join(errs...)
}
