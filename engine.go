package hostresolver

import (
	"time"

	"github.com/hostengine/resolver/cache"
)

// Engine owns the shared state every Host created from it draws on: the
// resolver driver, the Primary-Lookup Registry, and the process-wide
// Positive Cache (§3). Most programs use the package-level DefaultEngine;
// constructing additional engines is useful mainly for tests that want an
// isolated cache and a stub Driver.
type Engine struct {
	driver      Driver
	registry    *primaryLookupRegistry
	cache       *cache.Cache[[]Address]
	cachePolicy CachePolicy
}

// EngineOption configures an Engine built with NewEngine.
type EngineOption func(*Engine)

// WithDriver overrides the default Driver, most commonly with a stub for
// tests.
func WithDriver(d Driver) EngineOption {
	return func(e *Engine) { e.driver = d }
}

// WithCacheCapacity overrides the Positive Cache's capacity (512 entries by
// default; see cache.Cache for the eviction rule).
func WithCacheCapacity(cap int) EngineOption {
	return func(e *Engine) { e.cache = cache.New[[]Address](cap) }
}

// WithCachePolicy overrides DefaultCachePolicy.
func WithCachePolicy(p CachePolicy) EngineOption {
	return func(e *Engine) { e.cachePolicy = p }
}

// NewEngine returns a new Engine. Unconfigured, it uses NewDriver(), a
// 512-entry cache, and a 5-minute fixed TTL.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		driver:      NewDriver(),
		cache:       cache.New[[]Address](512),
		cachePolicy: DefaultCachePolicy(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = newPrimaryLookupRegistry(e)
	return e
}

var defaultEngine = NewEngine()

// DefaultEngine returns the process-wide Engine the package-level
// CreateWithName/CreateWithAddress helpers use.
func DefaultEngine() *Engine { return defaultEngine }

// CreateWithName is shorthand for DefaultEngine().CreateWithName(name).
func CreateWithName(name string) *Host { return defaultEngine.CreateWithName(name) }

// CreateWithAddress is shorthand for DefaultEngine().CreateWithAddress(sockAddr).
func CreateWithAddress(sockAddr []byte) (*Host, error) { return defaultEngine.CreateWithAddress(sockAddr) }
