package providers

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Context is the per-request scratch space shared by every provider evaluated
// for a single verification request. It deduplicates lookups against external
// resources: concurrent providers asking for the same key trigger exactly one
// fetch. It must never outlive its request.
type Context struct {
	mu     sync.Mutex
	values map[string]any
	group  singleflight.Group
}

// NewContext builds an empty per-request context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Resolve returns the cached value for key, or runs fetch once across all
// concurrent callers and memoizes the result. Only successful results are
// cached; a failed fetch leaves the key unset so a later caller can retry.
func (c *Context) Resolve(key string, fetch func() (any, error)) (any, error) {
	c.mu.Lock()
	if v, ok := c.values[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another flight may have stored the value between the
		// fast path and flight admission.
		c.mu.Lock()
		if v, ok := c.values[key]; ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := fetch()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.values[key] = v
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Value returns the cached value for key, if any.
func (c *Context) Value(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}
