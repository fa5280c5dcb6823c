package protocol

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axiom-wm/axiom/internal/wire"
)

// Client is the server's view of one connected wire.Conn: every
// resource it has created, keyed by the arena ids in ids.go rather than
// back-pointers, plus the bookkeeping (rate limiter, bound globals) that
// belongs to the connection rather than to any one resource.
type Client struct {
	ID   ClientID
	Conn *wire.Conn
	PID  int32
	UID  uint32

	log *zap.Logger

	mu             sync.Mutex
	surfaces       map[SurfaceID]*Surface
	buffers        map[BufferID]*clientBuffer
	windows        map[WindowID]*ClientWindow
	objects        map[ObjectID]ResourceKind
	pools          map[ObjectID]*ShmPool
	dmaParams      map[ObjectID]*DmaBufImport
	dataSources    map[ObjectID]*dataSource
	primarySources map[ObjectID]*dataSource

	Limiter *RateLimiter

	connectedAt time.Time
}

// clientBuffer is whichever of the two buffer backings a wl_buffer
// object currently wraps. Exactly one of Shm/Dma is non-nil.
type clientBuffer struct {
	Shm *ShmPool
	Dma *DmaBufImport

	ShmOffset int32
	ShmLength int
	ShmStride int32
	ShmWidth  int32
	ShmHeight int32
	ShmFormat ShmFormat

	Released bool
}

// ClientWindow is the protocol-side record of a mapped toplevel, holding
// just enough to forward into the workspace engine and shared snapshot
// — the engine only ever sees the WindowID, never this struct.
type ClientWindow struct {
	WindowID  WindowID
	SurfaceID SurfaceID
	Title     string
	AppID     string
}

// ResourceKind records what protocol object a given wire object id names,
// so dispatch can route an opcode without a type switch over every
// possible resource type.
type ResourceKind int

const (
	ResourceUnknown ResourceKind = iota
	ResourceSurface
	ResourceBuffer
	ResourceShmPool
	ResourceSeatKeyboard
	ResourceSeatPointer
	ResourceSeatTouch
	ResourceXdgSurface
	ResourceXdgToplevel
	ResourceXdgPopup
	ResourceLayerSurface
	ResourceRegistry
	ResourceCallback

	// Global-object kinds: the long-lived object a client gets back from
	// wl_registry.bind, before it has created any per-resource object
	// from it. Kept distinct from the per-resource kinds above so
	// dispatch can route wl_compositor.create_surface differently from
	// wl_surface.commit even though both ultimately touch Surface state.
	ResourceCompositorGlobal
	ResourceShmGlobal
	ResourceXdgWmBaseGlobal
	ResourceSeatGlobal
	ResourceLayerShellGlobal

	ResourceSubcompositorGlobal
	ResourceSubsurface

	ResourceOutputGlobal

	ResourceDataDeviceManagerGlobal
	ResourceDataDevice
	ResourceDataSource

	ResourcePrimarySelectionDeviceManagerGlobal
	ResourcePrimarySelectionDevice
	ResourcePrimarySelectionSource

	ResourcePresentationGlobal
	ResourcePresentationFeedback

	ResourceViewporterGlobal
	ResourceViewport

	ResourceLinuxDmabufGlobal
	ResourceLinuxBufferParams
)

func NewClient(id ClientID, conn *wire.Conn, pid int32, uid uint32, now func() time.Time, log *zap.Logger) *Client {
	return &Client{
		ID:             id,
		Conn:           conn,
		PID:            pid,
		UID:            uid,
		log:            log,
		surfaces:       make(map[SurfaceID]*Surface),
		buffers:        make(map[BufferID]*clientBuffer),
		windows:        make(map[WindowID]*ClientWindow),
		objects:        make(map[ObjectID]ResourceKind),
		pools:          make(map[ObjectID]*ShmPool),
		dmaParams:      make(map[ObjectID]*DmaBufImport),
		dataSources:    make(map[ObjectID]*dataSource),
		primarySources: make(map[ObjectID]*dataSource),
		Limiter:        NewRateLimiter(now),
		connectedAt:    now(),
	}
}

// maxWindowsPerClient and maxSurfacesPerClient are the §4.A.6 resource
// caps: exceeding either rejects the creating request (logged) without
// terminating the client's session.
const (
	maxWindowsPerClient  = 100
	maxSurfacesPerClient = 200
)

func (c *Client) AddSurface(s *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces[s.ID] = s
}

// SurfaceCount reports how many surfaces this client currently owns,
// for the §4.A.6 per-client cap check.
func (c *Client) SurfaceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.surfaces)
}

// WindowCount reports how many mapped toplevels this client owns.
func (c *Client) WindowCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

func (c *Client) AddPool(obj ObjectID, pool *ShmPool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[obj] = pool
}

func (c *Client) Pool(obj ObjectID) (*ShmPool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[obj]
	return p, ok
}

// AddDmaParams/DmaParams/RemoveDmaParams track a
// zwp_linux_buffer_params_v1 object's plane accumulation between its
// create_params and create/create_immed requests.
func (c *Client) AddDmaParams(obj ObjectID, p *DmaBufImport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dmaParams[obj] = p
}

func (c *Client) DmaParams(obj ObjectID) (*DmaBufImport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.dmaParams[obj]
	return p, ok
}

func (c *Client) RemoveDmaParams(obj ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dmaParams, obj)
}

// AddDataSource/DataSource back wl_data_source objects created by
// wl_data_device_manager.create_data_source.
func (c *Client) AddDataSource(obj ObjectID, s *dataSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataSources[obj] = s
}

func (c *Client) DataSource(obj ObjectID) (*dataSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.dataSources[obj]
	return s, ok
}

// AddPrimarySource/PrimarySource mirror AddDataSource/DataSource for
// wp_primary_selection_source_v1 objects.
func (c *Client) AddPrimarySource(obj ObjectID, s *dataSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primarySources[obj] = s
}

func (c *Client) PrimarySource(obj ObjectID) (*dataSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.primarySources[obj]
	return s, ok
}

func (c *Client) AddBuffer(id BufferID, b *clientBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers[id] = b
}

func (c *Client) Buffer(id BufferID) (*clientBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[id]
	return b, ok
}

func (c *Client) RemoveBuffer(id BufferID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, id)
}

func (c *Client) Surface(id SurfaceID) (*Surface, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.surfaces[id]
	return s, ok
}

// AliasSurface registers an additional key (typically the xdg_surface
// or zwlr_layer_surface_v1 object id) pointing at the same underlying
// Surface as an existing wl_surface object — the arena-index strategy
// applied to Wayland's multi-object-per-surface role protocols, so
// dispatch on any of a surface's role objects finds the one Surface by
// a plain map lookup instead of chasing a back-reference chain.
func (c *Client) AliasSurface(alias SurfaceID, surf *Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces[alias] = surf
}

func (c *Client) RemoveSurface(id SurfaceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.surfaces, id)
}

func (c *Client) AddWindow(w *ClientWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[w.WindowID] = w
}

func (c *Client) RemoveWindow(id WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, id)
}

// Windows returns the set of windows this client currently has mapped,
// used on disconnect to tell the workspace engine which windows to drop.
func (c *Client) Windows() []WindowID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WindowID, 0, len(c.windows))
	for id := range c.windows {
		out = append(out, id)
	}
	return out
}

func (c *Client) BindObject(obj ObjectID, kind ResourceKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[obj] = kind
}

func (c *Client) ObjectKind(obj ObjectID) ResourceKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects[obj]
}

func (c *Client) UnbindObject(obj ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, obj)
}

// Close releases every fd-backed resource this client owns (SHM pool
// mappings) and closes the underlying connection. Surfaces, buffers, and
// windows are left for the caller (the server's disconnect handler) to
// unwind against the workspace engine and shared snapshot, since those
// unwinds need global state this Client has no access to.
func (c *Client) Close() error {
	c.mu.Lock()
	// Pools are closed once each here rather than once per buffer
	// (several buffers commonly share one pool), avoiding a double
	// munmap.
	for _, pool := range c.pools {
		if err := pool.Close(); err != nil {
			c.log.Warn("shm pool close failed", zap.Error(err))
		}
	}
	c.mu.Unlock()
	return c.Conn.Close()
}
