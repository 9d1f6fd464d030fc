package prompt

import (
	"sync"
)

// TemplateCache keeps loaded templates for the duration of a run
type TemplateCache struct {
	mu    sync.RWMutex
	fs    FileReader
	cache map[string]string
}

// NewTemplateCache creates a cache that loads templates through fs
func NewTemplateCache(fs FileReader) *TemplateCache {
	return &TemplateCache{
		fs:    fs,
		cache: make(map[string]string),
	}
}

// Get returns the template for path, loading it on first use
func (c *TemplateCache) Get(path string) (string, error) {
	c.mu.RLock()
	tmpl, ok := c.cache[path]
	c.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := LoadTemplate(c.fs, path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = tmpl
	return tmpl, nil
}

// Invalidate drops the cached template for path
func (c *TemplateCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, path)
}

// Clear removes all entries from the cache
func (c *TemplateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]string)
}
