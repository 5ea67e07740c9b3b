package version

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/heretere/hac/oerror"
)

// Registry maps protocol versions to the adapter implementing them. It is immutable once created.
type Registry struct {
	adapters map[int32]Adapter
}

// NewRegistry returns a Registry holding the adapters passed. Two adapters implementing the same protocol
// version are not allowed.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[int32]Adapter, len(adapters))}
	for _, a := range adapters {
		if existing, ok := r.adapters[a.ID()]; ok {
			return nil, oerror.New("protocol %d is implemented by both %s and %s", a.ID(), existing.Name(), a.Name())
		}
		r.adapters[a.ID()] = a
	}
	return r, nil
}

// Lookup returns the adapter for a protocol version.
func (r *Registry) Lookup(id int32) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Resolve returns the adapter for a protocol version, or an error wrapping ErrUnsupportedVersion.
func (r *Registry) Resolve(id int32) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, oerror.New("%w: %d (supported: %v)", ErrUnsupportedVersion, id, r.IDs())
	}
	return a, nil
}

// IDs returns the supported protocol versions in ascending order.
func (r *Registry) IDs() []int32 {
	ids := make([]int32, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

var active atomic.Pointer[Adapter]

// ErrAlreadyBound is returned by Bind if a different adapter was bound before.
var ErrAlreadyBound = errors.New("a different protocol adapter is already bound")

// Bind binds the adapter used by the process. Binding the adapter of the protocol that is already bound is
// a no-op: there is no swapping adapters once one is active.
func Bind(a Adapter) error {
	if active.CompareAndSwap(nil, &a) {
		return nil
	}
	if cur := *active.Load(); cur.ID() != a.ID() {
		return oerror.New("bind %s (%d): %w: %s (%d)", a.Name(), a.ID(), ErrAlreadyBound, cur.Name(), cur.ID())
	}
	return nil
}

// Active returns the bound adapter, or nil if none was bound yet.
func Active() Adapter {
	if a := active.Load(); a != nil {
		return *a
	}
	return nil
}
