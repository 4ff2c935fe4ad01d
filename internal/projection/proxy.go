package projection

import (
	"sync"

	"github.com/skaldby/projoin/internal/document"
)

// newProxy creates a reference placeholder for a foreign id. Falsy ids get
// an empty document, matching the store's representation of a cleared
// reference.
func newProxy(id any) document.Document {
	if document.Falsy(id) {
		return document.Document{}
	}
	return document.Document{document.IDField: id}
}

// registry owns the reference proxies of one projection batch. A foreign id
// maps to exactly one proxy document, so merging fetched fields into it is
// visible at every result slot the proxy was spliced into.
type registry struct {
	mu      sync.Mutex
	proxies map[any]document.Document
}

func newRegistry() *registry {
	return &registry{proxies: make(map[any]document.Document)}
}

// getOrCreate returns the proxy registered for id, creating it first if
// needed. id must be a comparable primitive.
func (r *registry) getOrCreate(id any) document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proxy, ok := r.proxies[id]; ok {
		return proxy
	}
	proxy := newProxy(id)
	r.proxies[id] = proxy
	return proxy
}

// applyUpdate merges a fetched document into the proxy registered for its
// id. Documents without a registered proxy are ignored: a sub-query may
// return ids nobody asked for. The merge runs under the registry lock:
// two reference fields sharing a target type can collect the same id into
// separate joins, so concurrent sub-queries may resolve the same proxy.
func (r *registry) applyUpdate(doc document.Document) {
	id, ok := document.ID(doc)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	proxy := r.proxies[id]
	if proxy == nil {
		return
	}
	document.Merge(proxy, doc)
}
