package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store keeps the sessions of the web UI, keyed by an opaque browser id.
type Store struct {
	opts    Options
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store. Sessions idle for longer than idleTTL are
// dropped by Sweep; a zero idleTTL keeps them forever.
func NewStore(opts Options, idleTTL time.Duration) *Store {
	return &Store{
		opts:     opts,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for key, creating it on first use.
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[key]
	if !ok {
		s = NewSession(st.opts)
		st.sessions[key] = s
	}
	return s
}

// Lookup returns the session for key without creating one.
func (st *Store) Lookup(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[key]
	return s, ok
}

// Delete drops the session for key.
func (st *Store) Delete(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle since before now-idleTTL and returns how many went.
func (st *Store) Sweep(now time.Time) int {
	if st.idleTTL <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for key, s := range st.sessions {
		if now.Sub(s.LastActive()) > st.idleTTL {
			delete(st.sessions, key)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (st *Store) Run(ctx context.Context, every time.Duration) {
	if st.idleTTL <= 0 || every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := st.Sweep(now); n > 0 {
				slog.Debug("Evicted idle chat sessions", "count", n)
			}
		}
	}
}
