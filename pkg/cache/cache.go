package cache

import (
	"container/list"
	"sync"
	"time"

	"nochatbuilder/models"
	"nochatbuilder/pkg/config"
)

// Cache is an in-memory TTL cache with LRU eviction, safe for
// concurrent use. The hot path is chatbot configuration looked up by
// slug on every incoming turn.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*entry
	order    *list.List // MRU at front, LRU at back
	maxItems int        // 0 = unlimited
}

type entry struct {
	key  string
	v    any
	exp  int64 // unix seconds; 0 = no expiry
	elem *list.Element
}

var (
	defaultCache *Cache
	once         sync.Once
)

// New returns an empty cache capped at maxItems entries (0 = unlimited).
func New(maxItems int) *Cache {
	return &Cache{items: make(map[string]*entry), order: list.New(), maxItems: maxItems}
}

// Default returns the process-wide cache, sized from config.
func Default() *Cache {
	once.Do(func() {
		defaultCache = New(config.ChatbotCacheMaxItems)
		go defaultCache.janitor(60 * time.Second)
	})
	return defaultCache
}

// Get returns the value for key when present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	now := time.Now().Unix()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.exp != 0 && e.exp < now {
		c.mu.Lock()
		c.removeNoLock(key)
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Lock()
	if e.elem != nil {
		c.order.MoveToFront(e.elem)
	}
	c.mu.Unlock()
	return e.v, true
}

// Set stores a value with TTL. ttl<=0 means no expiry.
func (c *Cache) Set(key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).Unix()
	}
	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		e.v, e.exp = v, exp
		if e.elem != nil {
			c.order.MoveToFront(e.elem)
		}
	} else {
		e := &entry{key: key, v: v, exp: exp}
		e.elem = c.order.PushFront(e)
		c.items[key] = e
		if c.maxItems > 0 && c.order.Len() > c.maxItems {
			c.evictLRUNoLock()
		}
	}
	c.mu.Unlock()
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.removeNoLock(key)
	c.mu.Unlock()
}

const chatbotKeyPrefix = "chatbot:slug:"

// GetChatbot returns a cached chatbot configuration by slug.
func (c *Cache) GetChatbot(slug string) (*models.Chatbot, bool) {
	v, ok := c.Get(chatbotKeyPrefix + slug)
	if !ok {
		return nil, false
	}
	bot, ok := v.(*models.Chatbot)
	return bot, ok
}

// SetChatbot caches a chatbot configuration under its slug, using the
// configured TTL so admin edits surface without a restart.
func (c *Cache) SetChatbot(bot *models.Chatbot) {
	if bot == nil {
		return
	}
	ttl := time.Duration(config.ChatbotCacheTTLSeconds) * time.Second
	c.Set(chatbotKeyPrefix+bot.Slug, bot, ttl)
}

// InvalidateChatbot drops the cached configuration for slug.
func (c *Cache) InvalidateChatbot(slug string) {
	c.Delete(chatbotKeyPrefix + slug)
}

// janitor periodically removes expired items.
func (c *Cache) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		now := time.Now().Unix()
		c.mu.Lock()
		for k, e := range c.items {
			if e.exp != 0 && e.exp < now {
				c.removeNoLock(k)
			}
		}
		c.mu.Unlock()
	}
}

// removeNoLock removes key from map/list; caller must hold c.mu.
func (c *Cache) removeNoLock(key string) {
	if e, ok := c.items[key]; ok {
		if e.elem != nil {
			c.order.Remove(e.elem)
		}
		delete(c.items, key)
	}
}

// evictLRUNoLock removes one LRU entry; caller must hold c.mu.
func (c *Cache) evictLRUNoLock() {
	back := c.order.Back()
	if back == nil {
		return
	}
	if e, ok := back.Value.(*entry); ok {
		c.order.Remove(back)
		delete(c.items, e.key)
	} else {
		c.order.Remove(back)
	}
}
