// Package notify keeps track of each user's live push channel and delivers
// lifecycle events to it.
package notify

import (
	"errors"
	"sync"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

// CloseSuperseded is the close code sent to a channel replaced by a newer
// session of the same user.
const CloseSuperseded = 4000

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrSlowConsumer  = errors.New("channel send buffer full")
)

// Channel is one live push connection.
type Channel interface {
	ID() string
	// Send queues data without blocking.
	Send(data []byte) error
	// Close is idempotent.
	Close(code int, reason string)
	Closed() bool
}

type entry struct {
	ch   Channel
	role domain.Role
}

// Registry maps each user to at most one channel.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]entry)}
}

// Register makes ch the user's channel. A previous channel is closed after
// the swap, so its own cleanup finds a different channel and leaves the map
// alone.
func (r *Registry) Register(userID int64, role domain.Role, ch Channel) {
	r.mu.Lock()
	old, had := r.entries[userID]
	r.entries[userID] = entry{ch: ch, role: role}
	n := len(r.entries)
	r.mu.Unlock()

	metrics.ConnectionsActive.Set(float64(n))
	if had && old.ch != ch && !old.ch.Closed() {
		metrics.ConnectionsSupersededTotal.Inc()
		old.ch.Close(CloseSuperseded, "superseded")
	}
}

// Unregister removes the user's entry only if it still points at ch.
// It reports whether anything was removed.
func (r *Registry) Unregister(userID int64, ch Channel) bool {
	r.mu.Lock()
	cur, ok := r.entries[userID]
	removed := ok && cur.ch == ch
	if removed {
		delete(r.entries, userID)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if removed {
		metrics.ConnectionsActive.Set(float64(n))
	}
	return removed
}

// Lookup returns the user's channel if one is registered and open.
func (r *Registry) Lookup(userID int64) (Channel, bool) {
	r.mu.RLock()
	e, ok := r.entries[userID]
	r.mu.RUnlock()

	if !ok || e.ch.Closed() {
		return nil, false
	}
	return e.ch, true
}

// LookupByRole returns a snapshot of the open channels whose user has role.
func (r *Registry) LookupByRole(role domain.Role) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Channel, 0)
	for _, e := range r.entries {
		if e.role == role && !e.ch.Closed() {
			out = append(out, e.ch)
		}
	}
	return out
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
