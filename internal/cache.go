package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	tt "github.com/gnolang/rlin/internal/types"
)

const (
	cacheFileName = "lint_cache.msgpack"
	// cacheVersion is bumped whenever the stored entry layout changes.
	cacheVersion = 2

	defaultCacheMaxAge = 7 * 24 * time.Hour
)

type CacheEntry struct {
	Hash         string     `msgpack:"hash"`
	RuleSet      string     `msgpack:"rule_set"`
	Issues       []tt.Issue `msgpack:"issues"`
	CreatedAt    time.Time  `msgpack:"created_at"`
	LastAccessed time.Time  `msgpack:"last_accessed"`
}

type cacheFile struct {
	Version      int                   `msgpack:"version"`
	Dependencies map[string]string     `msgpack:"dependencies"`
	Entries      map[string]CacheEntry `msgpack:"entries"`
}

// Cache stores lint results keyed by file name, content hash and the set
// of rules that produced them. Entries are dropped when any of those
// changes, when a dependency file such as the configuration changes, or
// when they grow older than maxAge.
type Cache struct {
	CacheDir         string
	entries          map[string]CacheEntry
	mutex            sync.RWMutex
	maxAge           time.Duration
	dependencyFiles  []string
	dependencyHashes map[string]string
	dirty            bool
}

// NewCache opens the cache stored in cacheDir, creating the directory when needed.
// Changes to any of dependencyFiles invalidate every stored entry.
func NewCache(cacheDir string, dependencyFiles ...string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir:         cacheDir,
		entries:          make(map[string]CacheEntry),
		maxAge:           defaultCacheMaxAge,
		dependencyFiles:  dependencyFiles,
		dependencyHashes: make(map[string]string),
	}

	stored, err := cache.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	if err := cache.updateDependencyHashes(); err != nil {
		return nil, err
	}
	if stored != nil && stored.Version == cacheVersion && !cache.dependenciesDiffer(stored.Dependencies) {
		cache.entries = stored.Entries
	} else if stored != nil {
		cache.dirty = true
	}

	return cache, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

func (c *Cache) load() (*cacheFile, error) {
	data, err := os.ReadFile(c.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil // cache file doesn't exist yet. This is fine.
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}

	var stored cacheFile
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		// a corrupt cache is rebuilt from scratch
		return &cacheFile{}, nil
	}
	if stored.Entries == nil {
		stored.Entries = make(map[string]CacheEntry)
	}
	return &stored, nil
}

// Flush writes the cache to disk if it changed since it was loaded.
func (c *Cache) Flush() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := msgpack.Marshal(&cacheFile{
		Version:      cacheVersion,
		Dependencies: c.dependencyHashes,
		Entries:      c.entries,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	tmp := c.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path()); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.dirty = false
	return nil
}

// Set records the issues found in filename for the given content by the
// rules described by ruleSet.
func (c *Cache) Set(filename string, content []byte, ruleSet string, issues []tt.Issue) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[filename] = CacheEntry{
		Hash:         contentHash(content),
		RuleSet:      ruleSet,
		Issues:       issues,
		CreatedAt:    now,
		LastAccessed: now,
	}
	c.dirty = true
}

// Get returns the stored issues for filename if content and ruleSet are unchanged.
func (c *Cache) Get(filename string, content []byte, ruleSet string) ([]tt.Issue, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return nil, false
	}

	if c.isEntryInvalid(entry, content, ruleSet) {
		delete(c.entries, filename)
		c.dirty = true
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[filename] = entry

	return entry.Issues, true
}

func (c *Cache) isEntryInvalid(entry CacheEntry, content []byte, ruleSet string) bool {
	// too old
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}
	return entry.RuleSet != ruleSet || entry.Hash != contentHash(content)
}

func (c *Cache) dependenciesDiffer(stored map[string]string) bool {
	if len(stored) != len(c.dependencyHashes) {
		return true
	}
	for file, hash := range c.dependencyHashes {
		if stored[file] != hash {
			return true
		}
	}
	return false
}

func (c *Cache) updateDependencyHashes() error {
	for _, file := range c.dependencyFiles {
		content, err := os.ReadFile(file)
		if errors.Is(err, os.ErrNotExist) {
			c.dependencyHashes[file] = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get hash for %s: %w", file, err)
		}
		c.dependencyHashes[file] = contentHash(content)
	}
	return nil
}

func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	c.dirty = true
}

func contentHash(content []byte) string {
	return strconv.FormatUint(xxh3.Hash(content), 16)
}
