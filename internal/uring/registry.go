package uring

// registry owns every piece of caller-supplied memory the kernel may read
// or write while an operation is in flight, keyed by the operation's
// user_data. Reachability through these maps is what keeps the memory
// alive (and its address stable — the Go heap does not move objects) for
// the whole pin-to-release interval.
//
// Pinning under an identifier that is already pinned overwrites the prior
// resource; that is a caller bug (identifier reuse while in flight) and is
// not validated. Release is idempotent: releasing an absent key is a no-op.
type registry struct {
	mutable   map[uint64][]byte    // read/recv targets the kernel writes into
	immutable map[uint64][]byte    // write/send sources the kernel reads
	paths     map[uint64][]byte    // null-terminated C strings for openat
	timespecs map[uint64]*Timespec // timeout specifications
	addrs     map[uint64]*SockAddr // bind/connect socket addresses
}

func newRegistry() registry {
	return registry{
		mutable:   make(map[uint64][]byte),
		immutable: make(map[uint64][]byte),
		paths:     make(map[uint64][]byte),
		timespecs: make(map[uint64]*Timespec),
		addrs:     make(map[uint64]*SockAddr),
	}
}

func (g *registry) pinMutable(id uint64, buf []byte) { g.mutable[id] = buf }

func (g *registry) pinImmutable(id uint64, buf []byte) { g.immutable[id] = buf }

func (g *registry) pinPath(id uint64, path []byte) { g.paths[id] = path }

func (g *registry) pinTimespec(id uint64, ts *Timespec) { g.timespecs[id] = ts }

func (g *registry) pinAddr(id uint64, sa *SockAddr) { g.addrs[id] = sa }

// release drops any resource pinned under id, across all kinds.
func (g *registry) release(id uint64) {
	delete(g.mutable, id)
	delete(g.immutable, id)
	delete(g.paths, id)
	delete(g.timespecs, id)
	delete(g.addrs, id)
}

// clearAll drops every pinned resource. Used only at ring teardown.
func (g *registry) clearAll() {
	clear(g.mutable)
	clear(g.immutable)
	clear(g.paths)
	clear(g.timespecs)
	clear(g.addrs)
}

// pinned reports whether any resource is held under id.
func (g *registry) pinned(id uint64) bool {
	if _, ok := g.mutable[id]; ok {
		return true
	}
	if _, ok := g.immutable[id]; ok {
		return true
	}
	if _, ok := g.paths[id]; ok {
		return true
	}
	if _, ok := g.timespecs[id]; ok {
		return true
	}
	_, ok := g.addrs[id]
	return ok
}

// size counts pinned resources across all kinds.
func (g *registry) size() int {
	return len(g.mutable) + len(g.immutable) + len(g.paths) +
		len(g.timespecs) + len(g.addrs)
}
