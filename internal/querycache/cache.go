// Package querycache caches read results by key, serves them while fresh,
// refetches stale entries in the background and drops entries that a
// mutation invalidated.
//
// A Cache is an explicit value with its own configuration; there is no
// package-level instance. It is safe for concurrent use.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Namespaces used by the intranet layers. The first element of a Key is
// its namespace and selects the staleness window.
const (
	NamespaceTasks       = "tasks"
	NamespaceSearchUsers = "searchUsers"
	NamespaceNewsList    = "newsList"
	NamespaceNews        = "news"
	NamespaceGetInvolved = "getInvolved"
	NamespaceCarousel    = "newsCarousel"
	NamespaceEvents      = "events"
	NamespaceHero        = "hero-content"
	NamespaceHeroLayers  = "hero-layers"
	NamespaceTrending    = "trending"
)

const (
	// TaskStaleTime is the freshness window of the task list.
	TaskStaleTime = 30 * time.Second

	// ContentStaleTime is the freshness window of web part content.
	ContentStaleTime = 5 * time.Minute
)

// Config configures a Cache.
type Config struct {
	// DefaultStaleTime applies to namespaces without an entry in StaleTimes.
	DefaultStaleTime time.Duration

	// StaleTimes maps a namespace to its freshness window.
	StaleTimes map[string]time.Duration

	// Retry is the number of additional attempts after a failed read.
	Retry int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the windows the intranet pages use: 30 seconds for
// tasks and people searches, 5 minutes for content, one retry.
func DefaultConfig() Config {
	return Config{
		StaleTimes: map[string]time.Duration{
			NamespaceTasks:       TaskStaleTime,
			NamespaceSearchUsers: TaskStaleTime,
			NamespaceNewsList:    ContentStaleTime,
			NamespaceNews:        ContentStaleTime,
			NamespaceGetInvolved: ContentStaleTime,
			NamespaceCarousel:    ContentStaleTime,
			NamespaceEvents:      ContentStaleTime,
			NamespaceHero:        ContentStaleTime,
			NamespaceHeroLayers:  ContentStaleTime,
			NamespaceTrending:    ContentStaleTime,
		},
		Retry:      1,
		RetryDelay: time.Second,
	}
}

// Key identifies a query. Keys are compared by value, element by element.
type Key []any

// String renders the key for logs.
func (k Key) String() string {
	return "[" + strings.Join(encodeKey(k), ",") + "]"
}

type entry struct {
	key        Key
	parts      []string
	value      any
	hasValue   bool
	err        error
	updatedAt  time.Time
	gen        uint64 // replaced by every invalidation
	fetchedGen uint64 // gen observed when the stored value's fetch started
	fetching   int // runs in flight
}

func (e *entry) invalidated() bool { return e.hasValue && e.fetchedGen != e.gen }

// Cache is a keyed query cache with request coalescing.
type Cache struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64 // last generation handed out

	group singleflight.Group
	bg    sync.WaitGroup
}

// New creates a Cache.
func New(cfg Config, logger *zap.Logger) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Retry < 0 {
		cfg.Retry = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// StaleTime returns the freshness window of key's namespace.
func (c *Cache) StaleTime(key Key) time.Duration {
	if len(key) > 0 {
		if ns, ok := key[0].(string); ok {
			if d, ok := c.cfg.StaleTimes[ns]; ok {
				return d
			}
		}
	}
	return c.cfg.DefaultStaleTime
}

// Invalidate marks every entry whose key starts with prefix as invalid, so
// the next read refetches instead of serving it. A fetch already in flight
// for such a key still stores its value, but the entry stays invalid, and
// reads issued after the invalidation start their own fetch.
// It returns the number of entries touched.
func (c *Cache) Invalidate(prefix Key) int {
	parts := encodeKey(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if hasPrefix(e.parts, parts) {
			e.gen = c.nextGen()
			n++
		}
	}
	c.logger.Debug("invalidated queries", zap.Stringer("prefix", prefix), zap.Int("entries", n))
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Wait blocks until background refetches started so far have finished.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) lookup(key Key) (string, *entry) {
	parts := encodeKey(key)
	id := strings.Join(parts, "\x1f")
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, parts: parts, gen: c.nextGen()}
		c.entries[id] = e
	}
	return id, e
}

func (c *Cache) nextGen() uint64 {
	c.seq++
	return c.seq
}

// flightID names the shared fetch for an entry generation. Readers that
// arrive after an invalidation start a new fetch instead of joining one
// that began before it.
func flightID(id string, e *entry) string {
	return id + "#" + strconv.FormatUint(e.gen, 10)
}

func (c *Cache) isFresh(e *entry) bool {
	return e.hasValue && !e.invalidated() && c.cfg.Now().Sub(e.updatedAt) < c.StaleTime(e.key)
}

// run executes fetch with the retry policy and stores the outcome.
func (c *Cache) run(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	_, e := c.lookup(key)
	gen := e.gen
	e.fetching++
	c.mu.Unlock()

	v, err := c.attempt(ctx, key, fetch)

	c.mu.Lock()
	defer c.mu.Unlock()
	// The entry may have been cleared while fetching.
	_, e = c.lookup(key)
	if e.fetching > 0 {
		e.fetching--
	}
	// A fetch started after an invalidation may already have stored its value.
	superseded := e.hasValue && e.fetchedGen > gen
	if err != nil {
		if !superseded {
			e.err = err
		}
		return nil, err
	}
	if superseded {
		return e.value, nil
	}
	e.value = v
	e.hasValue = true
	e.err = nil
	e.updatedAt = c.cfg.Now()
	e.fetchedGen = gen
	return v, nil
}

func (c *Cache) attempt(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	var err error
	for i := 0; i <= c.cfg.Retry; i++ {
		if i > 0 {
			c.logger.Debug("retrying query", zap.Stringer("key", key), zap.Int("attempt", i+1), zap.Error(err))
			if c.cfg.RetryDelay > 0 {
				t := time.NewTimer(c.cfg.RetryDelay)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return nil, ctx.Err()
				}
			}
		}
		var v any
		v, err = fetch(ctx)
		if err == nil {
			return v, nil
		}
	}
	return nil, err
}

func encodeKey(k Key) []string {
	parts := make([]string, len(k))
	for i, el := range k {
		b, err := json.Marshal(el)
		if err != nil {
			parts[i] = fmt.Sprintf("%#v", el)
			continue
		}
		parts[i] = string(b)
	}
	return parts
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
