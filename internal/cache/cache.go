package cache

import (
	"sync"
	"time"
)

// Image describes a background image that was preloaded successfully.
type Image struct {
	Ref    string
	Format string
	Width  int
	Height int
}

type entry struct {
	image Image
	exp   time.Time
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

func (c *Cache) GetImage(ref string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[ref]
	if !ok || time.Now().After(e.exp) {
		return nil, false
	}
	img := e.image
	return &img, true
}

func (c *Cache) SetImage(img Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[img.Ref] = entry{image: img, exp: time.Now().Add(c.ttl)}
}

func (c *Cache) InvalidateImage(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ref)
}

// Purge drops every entry, expired or not.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
