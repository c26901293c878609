// Package registry tracks every live stream session (watch, log, shell,
// port-forward) under a single generic map, grounded in
// internal/eventsink.Hub's map+mutex+channel shape but keyed by session id
// rather than by websocket connection.
package registry

import (
	"context"
	"sync"

	"github.com/deskkube/clustercore/internal/pkg/metrics"
)

// Kind identifies which driver owns a registry entry.
type Kind string

const (
	KindWatch       Kind = "watch"
	KindLog         Kind = "log"
	KindShell       Kind = "shell"
	KindPortForward Kind = "portforward"
)

// Entry is the minimum state the registry tracks for one live session: a
// stop signal every driver observes at its I/O boundaries, plus whatever
// per-kind metadata the driver wants to expose to callers (e.g. local port
// for port-forward, pod/container for shell).
type Entry struct {
	ID       string
	Kind     Kind
	Metadata map[string]string

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewEntry builds an Entry ready for registration.
func NewEntry(id string, kind Kind, metadata map[string]string) *Entry {
	return &Entry{ID: id, Kind: kind, Metadata: metadata, stopCh: make(chan struct{})}
}

// DetachedContext returns a context derived from context.Background(),
// independent of any request context, that is canceled the moment entry's
// stop signal fires. A stream session is born when its start operation
// returns and dies only when its stop signal is raised — its I/O must not
// be tied to the lifetime of the HTTP request that started it. Callers must
// invoke the returned cancel func once their own work is done, win or lose,
// so the watcher goroutine below does not outlive the session.
func DetachedContext(entry *Entry) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-entry.Stopped():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Stopped returns a channel closed once this entry is signaled to stop.
// The signal is monotonic: once closed, it never reopens.
func (e *Entry) Stopped() <-chan struct{} { return e.stopCh }

// signal closes the stop channel exactly once.
func (e *Entry) signal() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// IsStopped reports whether this entry's stop signal has fired.
func (e *Entry) IsStopped() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

// Registry is a concurrency-safe map from session id to Entry. add, get,
// stop, remove, list, and is_active are all atomic with respect to each
// other under a single RWMutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers entry under its ID, replacing any prior entry with the
// same ID (the caller is expected to have stopped it first).
func (r *Registry) Add(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	metrics.RegistrySessionsActive.WithLabelValues(string(entry.Kind)).Set(float64(r.countLocked(entry.Kind)))
	metrics.RegistrySessionsTotal.WithLabelValues(string(entry.Kind)).Inc()
}

// Get returns the entry for id, if any.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Stop signals the entry for id to stop and reports whether an entry
// existed. Stopping an already-stopped or non-existent session is not an
// error — the signal is idempotent.
func (r *Registry) Stop(id string) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.signal()
	return true
}

// Remove deletes the entry for id. Drivers call this from their own
// termination path, regardless of what caused termination, so the
// registry never accumulates dead entries.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	delete(r.entries, id)
	metrics.RegistrySessionsActive.WithLabelValues(string(e.Kind)).Set(float64(r.countLocked(e.Kind)))
}

// List returns a snapshot of every entry of the given kind. kind == ""
// returns every entry regardless of kind.
func (r *Registry) List(kind Kind) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// IsActive reports whether id names a live, unstopped entry.
func (r *Registry) IsActive(id string) bool {
	e, ok := r.Get(id)
	return ok && !e.IsStopped()
}

// countLocked counts live entries of kind; callers must hold r.mu.
func (r *Registry) countLocked(kind Kind) int {
	n := 0
	for _, e := range r.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
