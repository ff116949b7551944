package session

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"synapse/internal/logging"
)

// DefaultCapacity bounds how many suspended sessions are retained before the
// least recently touched one is evicted.
const DefaultCapacity = 512

// Store holds suspended sessions in memory with LRU eviction, so abandoned
// clarify prompts cannot grow the process without bound. An evicted session
// behaves exactly like an expired one: resume fails with an invalid-session
// error.
type Store struct {
	cache  *lru.Cache[string, *Session]
	logger logging.Logger
}

// NewStore creates a store with the given capacity; values below one fall
// back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	logger := logging.NewComponentLogger("SessionStore")
	cache, err := lru.NewWithEvict(capacity, func(id string, _ *Session) {
		logger.Debug("evicted suspended session %s", id)
	})
	if err != nil {
		// lru.NewWithEvict only fails for non-positive sizes.
		panic(err)
	}
	return &Store{cache: cache, logger: logger}
}

// Save persists a session under its id, stamping SavedAt.
func (s *Store) Save(sess *Session) {
	sess.SavedAt = time.Now()
	s.cache.Add(sess.ID, sess)
}

// Load returns the session for an id, refreshing its recency. ok is false
// for unknown or evicted ids.
func (s *Store) Load(id string) (*Session, bool) {
	return s.cache.Get(id)
}

// Delete removes a completed session.
func (s *Store) Delete(id string) {
	s.cache.Remove(id)
}

// Len reports how many sessions are currently suspended.
func (s *Store) Len() int {
	return s.cache.Len()
}
