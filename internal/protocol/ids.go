package protocol

// Arena-style identifiers, per the design notes' strategy for avoiding
// cyclic ownership between server state and per-resource user data: every
// piece of state is keyed by a plain integer id in a map owned by the
// Server or Client, never by a back-pointer stored on a protocol
// resource. Cleanup on destroy is then just a map delete.
type (
	ClientID  uint32
	SurfaceID uint64
	WindowID  uint64
	BufferID  uint64
	ObjectID  uint32 // the wire-level per-connection object id
)

// idAllocator hands out monotonically increasing ids for one id space.
// The Server's allocator supplies client ids, window ids and configure
// serials and never reuses one within a server's lifetime (matching the
// arena strategy: a stale id found in a map lookup is always a bug, not
// a recycled resource). SurfaceID values do not come from it: they are
// the client's own wire object ids, unique only within that client.
type idAllocator struct {
	next uint64
}

func (a *idAllocator) alloc() uint64 {
	a.next++
	return a.next
}
