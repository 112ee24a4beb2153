package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Cache keys mirrored on every change.
const (
	KeyUser          = "mealsync_user"
	KeyOrders        = "mealsync_orders"
	KeyMeetingOrders = "mealsync_meeting_orders"
)

// Cache is the session-scoped key/value mirror. Get reports ok=false for a
// key that was never set or has been cleared.
type Cache interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Clear(key string) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string][]byte)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *MemoryCache) Set(key string, value []byte) error {
	c.mu.Lock()
	c.data[key] = append([]byte(nil), value...)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear(key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// DirCache stores each key as <dir>/<key>.json.
type DirCache struct {
	dir string
}

// NewDirCache creates a DirCache rooted at dir. The directory is created on first write.
func NewDirCache(dir string) *DirCache {
	return &DirCache{dir: dir}
}

func (c *DirCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *DirCache) Get(key string) ([]byte, bool, error) {
	b, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return b, true, nil
}

func (c *DirCache) Set(key string, value []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return os.Rename(tmp, c.path(key))
}

func (c *DirCache) Clear(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
