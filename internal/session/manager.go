package session

import (
	"log"
	"path/filepath"
	"sync"
)

// Manager holds one Session per user id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newCache func(userID string) Cache
}

// NewManager creates a Manager that builds each session's cache with newCache.
func NewManager(newCache func(userID string) Cache) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		newCache: newCache,
	}
}

// DirCaches returns a cache factory that gives each user a directory under root.
func DirCaches(root string) func(userID string) Cache {
	return func(userID string) Cache {
		return NewDirCache(filepath.Join(root, filepath.Base(userID)))
	}
}

// MemoryCaches returns a cache factory backed by process memory.
func MemoryCaches() func(userID string) Cache {
	var mu sync.Mutex
	caches := map[string]*MemoryCache{}
	return func(userID string) Cache {
		mu.Lock()
		defer mu.Unlock()
		c, ok := caches[userID]
		if !ok {
			c = NewMemoryCache()
			caches[userID] = c
		}
		return c
	}
}

// Open returns the live session for userID, hydrating a new one from its cache
// when none is live.
func (m *Manager) Open(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s, err := Open(m.newCache(userID))
	if err != nil {
		log.Printf("ERROR: hydrate session %s: %v", userID, err)
	}
	m.sessions[userID] = s
	return s
}

// Get returns the live session for userID without creating one.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// SignedIn reports whether userID's session holds a signed-in user. A session
// that was logged out, or never logged in, does not. It reads the cache of a
// session that is not live without making it live.
func (m *Manager) SignedIn(userID string) bool {
	if s, ok := m.Get(userID); ok {
		return s.State().User != nil
	}
	st, err := Hydrate(m.newCache(userID))
	if err != nil {
		log.Printf("ERROR: hydrate session %s: %v", userID, err)
		return false
	}
	return st.User != nil
}

// Close drops the live session for userID. Its cache is left in place.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}
