package translate

import (
	"context"
	"sync"

	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// Store persists the English-to-Chinese translation mapping.
type Store interface {
	LoadTranslations(ctx context.Context) (map[string]string, error)
	SaveTranslations(ctx context.Context, translations map[string]string) error
}

// Cache is the in-memory translation mapping shared by every job. Lookups
// key on the exact English sentence text.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache builds a cache preloaded from the store. A load failure is
// logged and yields an empty cache rather than an error; translations are
// recoverable by calling the provider again.
func NewCache(ctx context.Context, store Store) *Cache {
	entries, err := store.LoadTranslations(ctx)
	if err != nil {
		log.Warn("Failed to load translation cache, starting empty: %v", err)
		entries = nil
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	log.Info("Translation cache loaded with %d entries", len(entries))
	return &Cache{entries: entries}
}

func (c *Cache) Get(text string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	translated, ok := c.entries[text]
	return translated, ok
}

func (c *Cache) Put(text, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[text] = translated
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush writes the whole mapping back to the store.
func (c *Cache) Flush(ctx context.Context, store Store) error {
	c.mu.RLock()
	snapshot := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()
	return store.SaveTranslations(ctx, snapshot)
}
