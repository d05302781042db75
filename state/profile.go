package state

import (
	"sync/atomic"
	"time"
)

// ServerProfile describes the update server as last reported by SERVER_INFO.
// Values are immutable once published; a new response publishes a new value.
type ServerProfile struct {
	IP        string    `json:"ip"`
	Port      string    `json:"port"`
	Name      string    `json:"name"`
	Notice    string    `json:"notice"`
	Connected bool      `json:"connected"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store holds the current ServerProfile. Writes come from the dispatch path,
// reads from anywhere. Readers always observe a whole profile.
type Store struct {
	current atomic.Pointer[ServerProfile]
}

var empty = &ServerProfile{}

// NewStore returns a Store holding the empty, unconnected profile.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(empty)
	return s
}

// Load returns a copy of the current profile.
func (s *Store) Load() ServerProfile {
	return *s.current.Load()
}

// Replace publishes p as the current profile.
func (s *Store) Replace(p ServerProfile) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.current.Store(&p)
}

// MarkDisconnected publishes a copy of the current profile with Connected unset.
// It returns false if the profile was already disconnected.
func (s *Store) MarkDisconnected() bool {
	for {
		old := s.current.Load()
		if !old.Connected {
			return false
		}
		next := *old
		next.Connected = false
		next.UpdatedAt = time.Now()
		if s.current.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Reset restores the empty, unconnected profile.
func (s *Store) Reset() {
	s.current.Store(empty)
}

// Shared is the process-wide store read by the presentation layer.
var Shared = NewStore()
