package relay

import (
	"github.com/dkrylov/camstream/internal/core"
)

// Registry tracks the single active sender connection and the set of active
// viewer connections. State is process-lifetime only; nothing is persisted.
//
// The registry is not safe for concurrent use. It is owned by the Hub and
// touched exclusively from the Hub's Run goroutine, which serializes every
// connection event.
type Registry struct {
	sender  core.SignalConnection
	viewers map[core.SignalConnection]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		viewers: make(map[core.SignalConnection]struct{}),
	}
}

// SetSender unconditionally replaces any existing sender binding.
// Last writer wins; the displaced connection is not torn down or notified.
func (r *Registry) SetSender(c core.SignalConnection) {
	r.sender = c
}

// AddViewer is an idempotent set insertion.
func (r *Registry) AddViewer(c core.SignalConnection) {
	r.viewers[c] = struct{}{}
}

// RemoveSender clears the sender slot only if it currently holds c.
func (r *Registry) RemoveSender(c core.SignalConnection) {
	if r.sender == c {
		r.sender = nil
	}
}

// RemoveViewer is an idempotent removal.
func (r *Registry) RemoveViewer(c core.SignalConnection) {
	delete(r.viewers, c)
}

// CurrentSender returns the sender connection, or nil if the slot is empty.
func (r *Registry) CurrentSender() core.SignalConnection {
	return r.sender
}

// AllViewers returns a point-in-time snapshot of the viewer set. Mutating the
// registry while iterating the snapshot is safe.
func (r *Registry) AllViewers() []core.SignalConnection {
	out := make([]core.SignalConnection, 0, len(r.viewers))
	for c := range r.viewers {
		out = append(out, c)
	}
	return out
}

func (r *Registry) ViewerCount() int {
	return len(r.viewers)
}
