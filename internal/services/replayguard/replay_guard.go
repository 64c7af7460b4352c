package replayguard

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Guard remembers inbound message IDs for a window so redelivered notifications are handled once.
type Guard struct {
	cache *cache.Cache
}

// New creates a guard that remembers IDs for window.
func New(window, cleanupInterval time.Duration) *Guard {
	return &Guard{
		cache: cache.New(window, cleanupInterval),
	}
}

// Seen records id and reports whether it was already recorded within the window.
// Empty IDs are never reported as seen.
func (g *Guard) Seen(id string) bool {
	if id == "" {
		return false
	}
	// Add fails when the key is present and unexpired, which makes check-and-set atomic.
	return g.cache.Add(id, struct{}{}, cache.DefaultExpiration) != nil
}
