package execution

import (
	"slices"
	"sync"
)

// Registry is an ordered list of pending requests, safe for concurrent use
type Registry struct {
	mx      sync.Mutex
	pending []*Request
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Schedule appends a request, nil is ignored
func (r *Registry) Schedule(req *Request) {
	if req == nil {
		return
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	r.pending = append(r.pending, req)
}

// Pending returns a snapshot of pending requests in the scheduling order
func (r *Registry) Pending() []*Request {
	r.mx.Lock()
	defer r.mx.Unlock()
	return slices.Clone(r.pending)
}

func (r *Registry) Clear() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.pending = nil
}

// Drain atomically returns all pending requests and empties the registry
func (r *Registry) Drain() []*Request {
	r.mx.Lock()
	defer r.mx.Unlock()
	ret := r.pending
	r.pending = nil
	return ret
}

func (r *Registry) Len() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.pending)
}
