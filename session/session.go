// Package session tracks which consoles are currently sending input.
package session

import (
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout evicts a console after this much silence.
const DefaultTimeout = 10 * time.Second

// Session is one console, identified by source IP. Prev holds the button mask
// of the last frame applied to the controller.
type Session struct {
	Addr     netip.Addr
	Name     string
	LastSeen time.Time
	Prev     uint32
	// Frames counts frames applied for this console.
	Frames uint64
}

// Registry maps source IPs to sessions. The receive loop owns the sessions it
// gets from Touch; the lock guards the map for Snapshot readers.
type Registry struct {
	Timeout time.Duration

	mu       sync.Mutex
	sessions map[netip.Addr]*Session
}

// NewRegistry returns an empty registry; timeout <= 0 selects DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{Timeout: timeout, sessions: make(map[netip.Addr]*Session)}
}

// DisplayName is the name a console is logged under.
func DisplayName(addr netip.Addr) string {
	return fmt.Sprintf("3DS at %s", addr)
}

// Touch records activity from addr at now. created reports whether the
// session is new.
func (r *Registry) Touch(addr netip.Addr, now time.Time) (s *Session, created bool) {
	addr = addr.Unmap()
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[addr]
	if !ok {
		s = &Session{Addr: addr, Name: DisplayName(addr)}
		r.sessions[addr] = s
	}
	s.LastSeen = now
	return s, !ok
}

// Applied records that a frame with the given button mask reached the controller.
func (r *Registry) Applied(s *Session, buttons uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Prev = buttons
	s.Frames++
}

// Get returns the session for addr, if any.
func (r *Registry) Get(addr netip.Addr) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[addr.Unmap()]
	return s, ok
}

// Sweep removes sessions idle for longer than Timeout and returns them sorted
// by address.
func (r *Registry) Sweep(now time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var gone []*Session
	for addr, s := range r.sessions {
		if now.Sub(s.LastSeen) > r.Timeout {
			delete(r.sessions, addr)
			gone = append(gone, s)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].Addr.Less(gone[j].Addr) })
	return gone
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns copies of all sessions sorted by address.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr.Less(out[j].Addr) })
	return out
}
