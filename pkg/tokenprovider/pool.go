package tokenprovider

import (
	"runtime"
	"sync"
	"weak"
)

// Pool deduplicates providers by credential identity so that clients
// constructed with the same credentials share one provider, and therefore
// at most one token fetch, process-wide.
//
// Entries hold providers weakly: the pool never keeps an otherwise
// unreferenced provider alive, so rotating credentials in a long-running
// process does not accumulate dead providers. A lookup for a reclaimed
// identity simply constructs a fresh provider, which may still reuse a
// valid persisted cache entry without a network call.
type Pool struct {
	mu        sync.Mutex
	providers map[Identity]weak.Pointer[Provider]
}

// NewPool creates an empty provider pool.
func NewPool() *Pool {
	return &Pool{
		providers: make(map[Identity]weak.Pointer[Provider]),
	}
}

// GetOrCreate returns the pooled provider for the identity, constructing
// and registering one via construct when absent or already reclaimed.
// Concurrent calls with the same identity observe exactly one construction.
//
// The pool lock is held only around lookup and construction; providers
// fetch tokens lazily, so the lock never blocks on network I/O.
func (p *Pool) GetOrCreate(identity Identity, construct func() (*Provider, error)) (*Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if wp, ok := p.providers[identity]; ok {
		if prov := wp.Value(); prov != nil {
			return prov, nil
		}
		delete(p.providers, identity)
	}

	prov, err := construct()
	if err != nil {
		return nil, err
	}

	p.providers[identity] = weak.Make(prov)
	runtime.AddCleanup(prov, p.evict, identity)

	return prov, nil
}

// evict drops the entry for the identity once its provider has been
// reclaimed. A live entry means the identity was re-registered with a new
// provider in the meantime and must be kept.
func (p *Pool) evict(identity Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if wp, ok := p.providers[identity]; ok && wp.Value() == nil {
		delete(p.providers, identity)
	}
}

// Len returns the number of live providers currently pooled.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, wp := range p.providers {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}
