package protocol

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/axiom-wm/axiom/internal/geom"
	"github.com/axiom-wm/axiom/internal/snapshot"
	"github.com/axiom-wm/axiom/internal/wire"
	"github.com/axiom-wm/axiom/internal/workspace"
)

// Server is the protocol thread: it owns the Wayland listening socket,
// the per-client resource tables, the registry, and the seat, and is the
// only writer of window/surface state into the workspace Engine and the
// shared Snapshot. The render thread never touches any type in this
// package directly.
type Server struct {
	log *zap.Logger
	now func() time.Time

	ln   net.Listener
	path string

	engine   *workspace.Engine
	snap     *snapshot.Snapshot
	registry *Registry
	seat     *Seat

	gpuImportAvailable bool

	mu       sync.Mutex
	clients  map[ClientID]*Client
	views    map[ClientID]*ClientRegistryView
	layers   map[SurfaceID]*LayerSurface
	nextID   idAllocator
	viewport geom.Rect

	focusedClient  ClientID
	focusedSurface SurfaceID

	pendingFeedback  []pendingPresentationFeedback
	selection        selectionState
	primarySelection selectionState

	closed bool
}

// SetViewport records the output rectangle window layout is computed
// against, and immediately republishes placements for it. Called once
// at startup with the primary output's bounds and again whenever the
// output topology changes.
func (s *Server) SetViewport(viewport geom.Rect) {
	s.mu.Lock()
	s.viewport = viewport
	s.mu.Unlock()
	s.publishLayout()
}

// Tick advances in-flight scroll/momentum animations and republishes
// window placements, meant to be called once per frame by the process
// entrypoint's render loop — animation state lives in the workspace
// engine, but only the Server is allowed to push its results into the
// shared snapshot.
func (s *Server) Tick() {
	s.mu.Lock()
	err := s.engine.UpdateAnimations()
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("animation update failed", zap.Error(err))
	}
	s.publishLayout()
	s.resolvePresentationFeedback()
}

// publishLayout recomputes every mapped window's rectangle from the
// workspace engine and republishes it to the shared snapshot, per
// §4.A's "reflow the workspace" contract: every mutation that can move
// a window (map, unmap, insets change, scroll, layout-mode cycle) must
// be followed by a publishLayout call so the render thread's next
// frame sees current geometry.
func (s *Server) publishLayout() {
	s.mu.Lock()
	viewport := s.viewport
	s.mu.Unlock()
	if viewport.W <= 0 || viewport.H <= 0 {
		return
	}

	s.mu.Lock()
	rects := s.engine.CalculateWorkspaceLayouts(viewport)
	s.mu.Unlock()

	placements := make([]snapshot.WindowPlacement, 0, len(rects))
	for id, r := range rects {
		placements = append(placements, snapshot.WindowPlacement{
			WindowID: id, X: r.X, Y: r.Y, W: r.W, H: r.H, Opacity: 1,
		})
	}
	s.snap.PublishWindows(placements)
}

// NewServer creates the listening socket at
// ${XDG_RUNTIME_DIR}/wayland-axiom and wires the global registry.
func NewServer(engine *workspace.Engine, snap *snapshot.Snapshot, log *zap.Logger, now func() time.Time) (*Server, error) {
	if now == nil {
		now = time.Now
	}
	path := filepath.Join(runtimeDir(), "wayland-axiom")
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("wayland socket listen: %w", err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		ln.Close()
		return nil, fmt.Errorf("wayland socket chmod: %w", err)
	}

	s := &Server{
		log: log, now: now, ln: ln, path: path,
		engine: engine, snap: snap,
		registry: NewRegistry(),
		seat:     NewSeat(CapKeyboard|CapPointer, "seat0"),
		clients:  make(map[ClientID]*Client),
		views:    make(map[ClientID]*ClientRegistryView),
		layers:   make(map[SurfaceID]*LayerSurface),
	}
	for _, iface := range []GlobalName{
		GlobalCompositor, GlobalSubcompositor, GlobalShm, GlobalSeat, GlobalOutput,
		GlobalDataDeviceMgr, GlobalXdgWmBase, GlobalLayerShell, GlobalLinuxDmabuf,
		GlobalPresentation, GlobalViewporter, GlobalPrimarySelection,
	} {
		s.registry.Advertise(iface)
	}
	return s, nil
}

func (s *Server) Path() string { return s.path }

// SetGPUImportAvailable toggles whether tiled DMA-BUF modifiers are
// accepted; set by the render thread once it knows whether the active
// backend can import GPU-resident buffers directly.
func (s *Server) SetGPUImportAvailable(v bool) {
	s.mu.Lock()
	s.gpuImportAvailable = v
	s.mu.Unlock()
}

// Serve accepts client connections until the server is closed. Each
// client runs its own read loop on a goroutine; all mutation of shared
// state (engine, snapshot, registry) happens through this Server's
// methods, which take s.mu, so the per-client goroutines never race each
// other directly.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("wayland socket accept: %w", err)
		}
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			conn.Close()
			continue
		}
		go s.acceptClient(unixConn)
	}
}

func (s *Server) acceptClient(uc *net.UnixConn) {
	pid, uid, err := peerCredentials(uc)
	if err != nil {
		s.log.Warn("rejecting client: peer credential lookup failed", zap.Error(err))
		uc.Close()
		return
	}

	wc, err := wire.NewConn(uc)
	if err != nil {
		s.log.Error("client connection setup failed", zap.Error(err))
		uc.Close()
		return
	}

	s.mu.Lock()
	s.nextID.next++
	id := ClientID(s.nextID.next)
	client := NewClient(id, wc, pid, uid, s.now, s.log)
	s.clients[id] = client
	s.views[id] = NewClientRegistryView()
	s.mu.Unlock()

	s.log.Info("client connected", zap.Uint32("client", uint32(id)), zap.Int32("pid", pid))
	s.clientLoop(client)
}

func peerCredentials(uc *net.UnixConn) (pid int32, uid uint32, err error) {
	raw, err := uc.SyscallConn()
	if err != nil {
		return 0, 0, err
	}
	var ucred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return 0, 0, ctrlErr
	}
	if sockErr != nil {
		return 0, 0, sockErr
	}
	return ucred.Pid, ucred.Uid, nil
}

// clientLoop reads and dispatches requests until the connection errors
// out or the client disconnects, then unwinds every piece of state the
// client owned.
func (s *Server) clientLoop(c *Client) {
	defer s.disconnect(c)
	for {
		hdr, body, fds, err := c.Conn.Recv()
		if err != nil {
			if err.Error() != "wire: peer closed connection" {
				s.log.Debug("client read error", zap.Uint32("client", uint32(c.ID)), zap.Error(err))
			}
			return
		}
		if !c.Limiter.Allow() {
			continue
		}
		if err := s.dispatch(c, hdr, body, fds); err != nil {
			s.log.Warn("request dispatch error", zap.Uint32("client", uint32(c.ID)), zap.Error(err))
		}
	}
}

// dispatch routes one incoming request by the ResourceKind its target
// object id was bound as. The per-interface opcode tables mirror the
// configure/ack/commit and buffer-attach logic already implemented in
// surface.go/buffer.go; this is the glue that calls into them from wire
// bytes instead of from tests.
func (s *Server) dispatch(c *Client, hdr wire.Header, body []byte, fds []int) error {
	kind := c.ObjectKind(ObjectID(hdr.Sender))
	switch kind {
	case ResourceSurface:
		return s.dispatchSurface(c, ObjectID(hdr.Sender), hdr.Opcode, body, fds)
	case ResourceXdgSurface:
		return s.dispatchXdgSurface(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourceXdgToplevel:
		return s.dispatchToplevel(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourceRegistry:
		return s.dispatchRegistry(c, hdr.Opcode, body)
	case ResourceShmPool:
		return s.dispatchShmPoolInstance(c, ObjectID(hdr.Sender), hdr.Opcode, body, fds)
	case ResourceBuffer:
		return s.dispatchBuffer(c, ObjectID(hdr.Sender), hdr.Opcode)
	case ResourceCompositorGlobal:
		return s.dispatchCompositor(c, hdr.Opcode, body)
	case ResourceShmGlobal:
		return s.dispatchShmGlobal(c, hdr.Opcode, body, fds)
	case ResourceXdgWmBaseGlobal:
		return s.dispatchXdgWmBase(c, hdr.Opcode, body)
	case ResourceSeatGlobal:
		return s.dispatchSeatGlobal(c, hdr.Opcode, body)
	case ResourceLayerShellGlobal:
		return s.dispatchLayerShellGlobal(c, hdr.Opcode, body)
	case ResourceLayerSurface:
		return s.dispatchLayerSurface(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourceSubcompositorGlobal:
		return s.dispatchSubcompositorGlobal(c, hdr.Opcode, body)
	case ResourceSubsurface:
		return s.dispatchSubsurface(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourceOutputGlobal:
		return s.dispatchOutputGlobal(c, hdr.Opcode)
	case ResourceDataDeviceManagerGlobal:
		return s.dispatchDataDeviceManagerGlobal(c, hdr.Opcode, body)
	case ResourceDataDevice:
		return s.dispatchDataDevice(c, hdr.Opcode, body)
	case ResourceDataSource:
		return s.dispatchDataSource(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourcePrimarySelectionDeviceManagerGlobal:
		return s.dispatchPrimarySelectionDeviceManagerGlobal(c, hdr.Opcode, body)
	case ResourcePrimarySelectionDevice:
		return s.dispatchPrimarySelectionDevice(c, hdr.Opcode, body)
	case ResourcePrimarySelectionSource:
		return s.dispatchPrimarySelectionSource(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourcePresentationGlobal:
		return s.dispatchPresentationGlobal(c, hdr.Opcode, body)
	case ResourcePresentationFeedback:
		return fmt.Errorf("protocol: wp_presentation_feedback has no client requests (opcode %d)", hdr.Opcode)
	case ResourceViewporterGlobal:
		return s.dispatchViewporterGlobal(c, hdr.Opcode, body)
	case ResourceViewport:
		return s.dispatchViewport(c, ObjectID(hdr.Sender), hdr.Opcode, body)
	case ResourceLinuxDmabufGlobal:
		return s.dispatchLinuxDmabufGlobal(c, hdr.Opcode, body)
	case ResourceLinuxBufferParams:
		return s.dispatchLinuxBufferParams(c, ObjectID(hdr.Sender), hdr.Opcode, body, fds)
	default:
		// Object 1 is always wl_display; every connection implicitly has
		// it bound even though nothing ever calls BindObject for it.
		if hdr.Sender == 1 {
			return s.dispatchDisplay(c, hdr.Opcode, body)
		}
		return fmt.Errorf("protocol: request on unbound or unknown object %d", hdr.Sender)
	}
}

func (s *Server) dispatchDisplay(c *Client, opcode uint16, body []byte) error {
	const opGetRegistry = 1
	if opcode != opGetRegistry {
		return fmt.Errorf("protocol: wl_display: unhandled opcode %d", opcode)
	}
	r := wire.NewReader(body, nil)
	regObj, err := r.Uint()
	if err != nil {
		return err
	}
	c.BindObject(ObjectID(regObj), ResourceRegistry)

	s.mu.Lock()
	globals := s.registry.All()
	s.mu.Unlock()
	for _, g := range globals {
		b := wire.NewBuilder()
		b.PutUint(g.Name)
		b.PutString(string(g.Interface))
		b.PutUint(g.Version)
		const evGlobal = 0
		_ = c.Conn.Send(wire.Header{Sender: uint32(regObj), Opcode: evGlobal, Size: uint16(wire.HeaderSize + len(b.Bytes()))}, b.Bytes(), nil)
	}
	return nil
}

func (s *Server) dispatchRegistry(c *Client, opcode uint16, body []byte) error {
	const opBind = 0
	if opcode != opBind {
		return fmt.Errorf("protocol: wl_registry: unhandled opcode %d", opcode)
	}
	r := wire.NewReader(body, nil)
	name, err := r.Uint()
	if err != nil {
		return err
	}
	newID, err := r.Uint()
	if err != nil {
		return err
	}

	s.mu.Lock()
	g, ok := s.registry.ByName(name)
	view := s.views[c.ID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("protocol: bind of unknown global name %d", name)
	}
	view.Bind(name, ObjectID(newID), g.Version)

	switch g.Interface {
	case GlobalCompositor:
		c.BindObject(ObjectID(newID), ResourceCompositorGlobal)
	case GlobalSeat:
		c.BindObject(ObjectID(newID), ResourceSeatGlobal)
		s.sendSeatCapabilities(c, ObjectID(newID), g.Version)
	case GlobalShm:
		c.BindObject(ObjectID(newID), ResourceShmGlobal)
	case GlobalXdgWmBase:
		c.BindObject(ObjectID(newID), ResourceXdgWmBaseGlobal)
	case GlobalLayerShell:
		c.BindObject(ObjectID(newID), ResourceLayerShellGlobal)
	case GlobalSubcompositor:
		c.BindObject(ObjectID(newID), ResourceSubcompositorGlobal)
	case GlobalOutput:
		c.BindObject(ObjectID(newID), ResourceOutputGlobal)
		s.sendOutputInfo(c, ObjectID(newID))
	case GlobalDataDeviceMgr:
		c.BindObject(ObjectID(newID), ResourceDataDeviceManagerGlobal)
	case GlobalPrimarySelection:
		c.BindObject(ObjectID(newID), ResourcePrimarySelectionDeviceManagerGlobal)
	case GlobalPresentation:
		c.BindObject(ObjectID(newID), ResourcePresentationGlobal)
	case GlobalViewporter:
		c.BindObject(ObjectID(newID), ResourceViewporterGlobal)
	case GlobalLinuxDmabuf:
		c.BindObject(ObjectID(newID), ResourceLinuxDmabufGlobal)
		s.sendDmabufFormats(c, ObjectID(newID))
	default:
		c.BindObject(ObjectID(newID), ResourceUnknown)
	}
	return nil
}

// sendSeatCapabilities sends the capabilities event (and, at version
// >= 2, the name event) immediately on bind. §6: "Failing to send
// capabilities is a protocol violation that crashes compliant clients."
func (s *Server) sendSeatCapabilities(c *Client, obj ObjectID, version uint32) {
	const (
		evCapabilities = 0
		evName         = 1
	)
	b := wire.NewBuilder()
	b.PutUint(uint32(s.seat.Capabilities))
	_ = c.Conn.Send(wire.Header{Sender: uint32(obj), Opcode: evCapabilities, Size: uint16(wire.HeaderSize + len(b.Bytes()))}, b.Bytes(), nil)

	if version >= 2 {
		nb := wire.NewBuilder()
		nb.PutString(s.seat.Name)
		_ = c.Conn.Send(wire.Header{Sender: uint32(obj), Opcode: evName, Size: uint16(wire.HeaderSize + len(nb.Bytes()))}, nb.Bytes(), nil)
	}
}

// dispatchShmGlobal handles wl_shm.create_pool, the only request the
// bound wl_shm global itself accepts; everything else (create_buffer,
// resize) is a request against the new wl_shm_pool object it returns,
// handled by dispatchShmPoolInstance.
func (s *Server) dispatchShmGlobal(c *Client, opcode uint16, body []byte, fds []int) error {
	const opCreatePool = 0
	if opcode != opCreatePool {
		return fmt.Errorf("protocol: wl_shm: unhandled opcode %d", opcode)
	}
	if len(fds) != 1 {
		return fmt.Errorf("protocol: wl_shm.create_pool requires exactly one fd, got %d", len(fds))
	}
	r := wire.NewReader(body, fds)
	newID, err := r.Uint()
	if err != nil {
		return err
	}
	size, err := r.Int()
	if err != nil {
		return err
	}
	pool, err := OpenShmPool(fds[0], size)
	if err != nil {
		return err
	}
	c.AddPool(ObjectID(newID), pool)
	c.BindObject(ObjectID(newID), ResourceShmPool)
	return nil
}

// dispatchShmPoolInstance handles wl_shm_pool.{create_buffer,destroy,
// resize} against a pool created by dispatchShmGlobal.
func (s *Server) dispatchShmPoolInstance(c *Client, obj ObjectID, opcode uint16, body []byte, fds []int) error {
	pool, ok := c.Pool(obj)
	if !ok {
		return fmt.Errorf("protocol: wl_shm_pool request on unknown pool object %d", obj)
	}
	const (
		opCreateBuffer = 0
		opDestroy      = 1
		opResize       = 2
	)
	switch opcode {
	case opCreateBuffer:
		r := wire.NewReader(body, fds)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		offset, err := r.Int()
		if err != nil {
			return err
		}
		width, err := r.Int()
		if err != nil {
			return err
		}
		height, err := r.Int()
		if err != nil {
			return err
		}
		stride, err := r.Int()
		if err != nil {
			return err
		}
		formatRaw, err := r.Uint()
		if err != nil {
			return err
		}
		if width <= 0 || height <= 0 || width > 16384 || height > 16384 {
			return fmt.Errorf("protocol: wl_shm_pool.create_buffer: size %dx%d out of bounds", width, height)
		}
		buf := &clientBuffer{
			Shm: pool, ShmOffset: offset, ShmLength: int(stride) * int(height),
			ShmStride: stride, ShmWidth: width, ShmHeight: height,
			ShmFormat: ShmFormat(formatRaw),
		}
		c.AddBuffer(BufferID(newID), buf)
		c.BindObject(ObjectID(newID), ResourceBuffer)
		return nil
	case opDestroy, opResize:
		// Both are accepted and ignored: the ShmPool keeps the mapping
		// it was created with, and nothing re-maps it after a resize.
		return nil
	default:
		return fmt.Errorf("protocol: wl_shm_pool: unhandled opcode %d", opcode)
	}
}

// dispatchBuffer handles wl_buffer.destroy: the client releasing its
// own reference to a buffer it created, independent of the
// compositor's release event.
func (s *Server) dispatchBuffer(c *Client, obj ObjectID, opcode uint16) error {
	const opDestroy = 0
	if opcode != opDestroy {
		return fmt.Errorf("protocol: wl_buffer: unhandled opcode %d", opcode)
	}
	c.RemoveBuffer(BufferID(obj))
	c.UnbindObject(obj)
	return nil
}

// dispatchCompositor handles wl_compositor.{create_surface,create_region}.
func (s *Server) dispatchCompositor(c *Client, opcode uint16, body []byte) error {
	const (
		opCreateSurface = 0
		opCreateRegion  = 1
	)
	switch opcode {
	case opCreateSurface:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		if c.SurfaceCount() >= maxSurfacesPerClient {
			s.log.Info("rejecting create_surface: per-client surface cap reached", zap.Uint32("client", uint32(c.ID)))
			return nil
		}
		surf := &Surface{ID: SurfaceID(newID), ClientID: c.ID, Scale: 1}
		c.AddSurface(surf)
		c.BindObject(ObjectID(newID), ResourceSurface)
		return nil
	case opCreateRegion:
		// Accepted without creating a region object. dispatchSurface
		// does not handle set_opaque_region or set_input_region, so
		// Surface.OpaqueRegion and InputRegion are never populated.
		return nil
	default:
		return fmt.Errorf("protocol: wl_compositor: unhandled opcode %d", opcode)
	}
}

// dispatchSeatGlobal handles wl_seat.{get_pointer,get_keyboard,
// get_touch,release}.
func (s *Server) dispatchSeatGlobal(c *Client, opcode uint16, body []byte) error {
	const (
		opGetPointer  = 0
		opGetKeyboard = 1
		opGetTouch    = 2
		opRelease     = 3
	)
	bindKind := func(cap SeatCapability, kind ResourceKind) error {
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		c.BindObject(ObjectID(newID), kind)
		s.seat.Bind(c.ID, cap, ObjectID(newID))
		return nil
	}
	switch opcode {
	case opGetPointer:
		return bindKind(CapPointer, ResourceSeatPointer)
	case opGetKeyboard:
		return bindKind(CapKeyboard, ResourceSeatKeyboard)
	case opGetTouch:
		return bindKind(CapTouch, ResourceSeatTouch)
	case opRelease:
		return nil
	default:
		return fmt.Errorf("protocol: wl_seat: unhandled opcode %d", opcode)
	}
}

// dispatchXdgWmBase handles xdg_wm_base.{create_positioner,
// get_xdg_surface,pong}. get_xdg_surface aliases the new xdg_surface
// object onto the same *Surface the client already created, rather
// than tracking a separate XdgSurface arena entry, and binds it as its
// own ResourceKind — distinct from ResourceXdgToplevel — since the two
// interfaces have overlapping opcode numbers (xdg_surface.destroy and
// xdg_toplevel.destroy are both opcode 0, but set_window_geometry=3 on
// one collides with set_app_id=3 on the other) and must not share a
// dispatch switch.
func (s *Server) dispatchXdgWmBase(c *Client, opcode uint16, body []byte) error {
	const (
		opCreatePositioner = 1
		opGetXdgSurface    = 2
		opPong             = 3
	)
	switch opcode {
	case opGetXdgSurface:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		surfaceObj, err := r.Uint()
		if err != nil {
			return err
		}
		surf, ok := c.Surface(SurfaceID(surfaceObj))
		if !ok {
			return fmt.Errorf("protocol: get_xdg_surface on unknown surface %d", surfaceObj)
		}
		c.AliasSurface(SurfaceID(newID), surf)
		c.BindObject(ObjectID(newID), ResourceXdgSurface)
		return nil
	case opCreatePositioner, opPong:
		return nil
	default:
		return fmt.Errorf("protocol: xdg_wm_base: unhandled opcode %d", opcode)
	}
}

// dispatchXdgSurface handles xdg_surface.{destroy,get_toplevel,
// get_popup,set_window_geometry,ack_configure}.
func (s *Server) dispatchXdgSurface(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opDestroy           = 0
		opGetToplevel       = 1
		opGetPopup          = 2
		opSetWindowGeometry = 3
		opAckConfigure      = 4
	)
	surf, ok := c.Surface(SurfaceID(obj))
	if !ok {
		return fmt.Errorf("protocol: xdg_surface request on unknown object %d", obj)
	}
	switch opcode {
	case opGetToplevel:
		r := wire.NewReader(body, nil)
		newID, err := r.Uint()
		if err != nil {
			return err
		}
		c.AliasSurface(SurfaceID(newID), surf)
		c.BindObject(ObjectID(newID), ResourceXdgToplevel)
		surf.Role = RoleToplevel
		surf.Toplevel = &ToplevelState{}
		s.sendInitialConfigure(c, surf, obj, ObjectID(newID))
		return nil
	case opGetPopup, opSetWindowGeometry, opDestroy:
		return nil
	case opAckConfigure:
		r := wire.NewReader(body, nil)
		serial, err := r.Uint()
		if err != nil {
			return err
		}
		if surf.Toplevel != nil {
			return surf.Toplevel.AckConfigure(serial)
		}
		return nil
	default:
		return fmt.Errorf("protocol: xdg_surface: unhandled opcode %d", opcode)
	}
}

// dispatchLayerShellGlobal handles zwlr_layer_shell_v1.get_layer_surface.
func (s *Server) dispatchLayerShellGlobal(c *Client, opcode uint16, body []byte) error {
	const opGetLayerSurface = 0
	if opcode != opGetLayerSurface {
		return nil // destroy and other opcodes are no-ops at this depth
	}
	r := wire.NewReader(body, nil)
	newID, err := r.Uint()
	if err != nil {
		return err
	}
	surfaceObj, err := r.Uint()
	if err != nil {
		return err
	}
	outputObj, err := r.Uint()
	if err != nil {
		return err
	}
	layerRaw, err := r.Uint()
	if err != nil {
		return err
	}
	namespace, err := r.String()
	if err != nil {
		return err
	}
	surf, ok := c.Surface(SurfaceID(surfaceObj))
	if !ok {
		return fmt.Errorf("protocol: get_layer_surface on unknown surface %d", surfaceObj)
	}
	surf.Role = RoleLayer

	var output *int
	if outputObj != 0 {
		idx := int(outputObj)
		output = &idx
	}
	ls := &LayerSurface{
		SurfaceID: SurfaceID(newID), ClientID: c.ID, Output: output,
		Namespace: SanitizeString(namespace), Layer: layerFromWire(layerRaw),
	}

	s.mu.Lock()
	s.layers[SurfaceID(newID)] = ls
	s.mu.Unlock()

	c.AliasSurface(SurfaceID(newID), surf)
	c.BindObject(ObjectID(newID), ResourceLayerSurface)
	return nil
}

func layerFromWire(v uint32) Layer {
	switch v {
	case 0:
		return LayerBackground
	case 1:
		return LayerBottom
	case 2:
		return LayerTop
	case 3:
		return LayerOverlay
	default:
		return LayerTop
	}
}

// dispatchLayerSurface handles zwlr_layer_surface_v1.{set_size,
// set_anchor,set_exclusive_zone,set_margin,set_keyboard_interactivity,
// ack_configure,destroy}. Every setter just records state; the
// reserved-inset recompute happens once per commit, in dispatchSurface.
func (s *Server) dispatchLayerSurface(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	s.mu.Lock()
	ls, ok := s.layers[SurfaceID(obj)]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("protocol: zwlr_layer_surface_v1 request on unknown object %d", obj)
	}
	const (
		opSetSize                  = 0
		opSetAnchor                = 1
		opSetExclusiveZone         = 2
		opSetMargin                = 3
		opSetKeyboardInteractivity = 4
		opDestroy                  = 5
		opAckConfigure             = 6
	)
	r := wire.NewReader(body, nil)
	switch opcode {
	case opSetSize:
		w, _ := r.Uint()
		h, _ := r.Uint()
		ls.DesiredW, ls.DesiredH = int32(w), int32(h)
	case opSetAnchor:
		a, err := r.Uint()
		if err != nil {
			return err
		}
		ls.Anchor = Anchor(a)
	case opSetExclusiveZone:
		z, err := r.Int()
		if err != nil {
			return err
		}
		ls.Exclusive = z
	case opSetMargin:
		top, _ := r.Int()
		right, _ := r.Int()
		bottom, _ := r.Int()
		left, _ := r.Int()
		ls.Margin.Top, ls.Margin.Right, ls.Margin.Bottom, ls.Margin.Left = top, right, bottom, left
	case opSetKeyboardInteractivity:
		v, _ := r.Uint()
		ls.KeyboardInteractive = v != 0
	case opAckConfigure:
		serial, _ := r.Uint()
		ls.ConfiguredSerial = serial
	case opDestroy:
		s.mu.Lock()
		delete(s.layers, SurfaceID(obj))
		s.mu.Unlock()
	default:
		return fmt.Errorf("protocol: zwlr_layer_surface_v1: unhandled opcode %d", opcode)
	}
	return nil
}

// recomputeReservedInsets gathers every currently-mapped layer surface
// and pushes the recomputed insets into the workspace engine, per
// §4.A's on_layer_surface_reserved_insets_changed → Workspace Engine
// contract.
func (s *Server) recomputeReservedInsets() {
	s.mu.Lock()
	layers := make([]*LayerSurface, 0, len(s.layers))
	for id, l := range s.layers {
		owner, ok := s.clients[l.ClientID]
		if !ok {
			continue
		}
		if surf, ok := owner.Surface(id); ok && surf.Mapped {
			layers = append(layers, l)
		}
	}
	s.mu.Unlock()

	insets := ComputeReservedInsets(layers)
	s.mu.Lock()
	s.engine.SetReservedInsets(insets.Top, insets.Right, insets.Bottom, insets.Left)
	s.mu.Unlock()
	s.publishLayout()
}

// dispatchSurface handles wl_surface.{attach,damage,commit,frame}. Only
// commit drives the configure/ack/commit state machine; attach just
// records the pending buffer id.
func (s *Server) dispatchSurface(c *Client, obj ObjectID, opcode uint16, body []byte, fds []int) error {
	surf, ok := c.Surface(SurfaceID(obj))
	if !ok {
		return fmt.Errorf("protocol: wl_surface request on unknown surface object %d", obj)
	}
	const (
		opAttach = 1
		opDamage = 2
		opFrame  = 3
		opCommit = 6
	)
	switch opcode {
	case opAttach:
		r := wire.NewReader(body, fds)
		bufID, err := r.Uint()
		if err != nil {
			return err
		}
		b := BufferID(bufID)
		surf.PendingBuffer = &b
		return nil
	case opDamage:
		r := wire.NewReader(body, fds)
		x, _ := r.Int()
		y, _ := r.Int()
		w, _ := r.Int()
		h, _ := r.Int()
		surf.Damage = append(surf.Damage, Rect{X: x, Y: y, W: w, H: h})
		return nil
	case opFrame:
		r := wire.NewReader(body, fds)
		cbID, err := r.Uint()
		if err != nil {
			return err
		}
		surf.FrameCallbacks = append(surf.FrameCallbacks, cbID)
		return nil
	case opCommit:
		hadBuffer := surf.PendingBuffer != nil
		justMapped := false
		if surf.Role == RoleToplevel && surf.Toplevel != nil {
			justMapped = surf.Toplevel.Commit(hadBuffer)
		} else {
			surf.Mapped = surf.Mapped || hadBuffer
		}
		if hadBuffer {
			s.ingestPendingBuffer(c, surf)
		}
		if justMapped {
			s.mapToplevel(c, surf)
		}
		if surf.Role == RoleLayer {
			s.recomputeReservedInsets()
		}
		return nil
	default:
		return fmt.Errorf("protocol: wl_surface: unhandled opcode %d", opcode)
	}
}

// ingestPendingBuffer converts the surface's pending buffer to RGBA
// and queues it for GPU upload, per §4.A.2's buffer-ingestion
// algorithm. The buffer is released to the client afterward regardless
// of conversion success — a client must never leak a buffer because
// the compositor failed to parse it.
func (s *Server) ingestPendingBuffer(c *Client, surf *Surface) {
	bufID := *surf.PendingBuffer
	buf, ok := c.Buffer(bufID)
	if !ok {
		return
	}

	var (
		rgba          []byte
		width, height int
		err           error
	)
	switch {
	case buf.Shm != nil:
		region, rerr := buf.Shm.Bytes(buf.ShmOffset, buf.ShmLength)
		if rerr != nil {
			err = rerr
			break
		}
		width, height = int(buf.ShmWidth), int(buf.ShmHeight)
		rgba, err = ConvertSHMToRGBA(region, width, height, buf.ShmStride, buf.ShmFormat)
	case buf.Dma != nil:
		width, height = int(buf.Dma.Width), int(buf.Dma.Height)
		rgba, err = ConvertDMABUFToRGBA(*buf.Dma, s.log)
	default:
		return
	}

	if err != nil {
		s.log.Warn("buffer conversion failed, dropping frame", zap.Uint64("surface", uint64(surf.ID)), zap.Error(err))
	} else {
		s.snap.QueueUpload(snapshot.TextureUpload{
			SurfaceID: uint64(surf.ID), Width: width, Height: height, RGBA: rgba,
		})
	}

	s.releaseBuffer(c, bufID)
	surf.CurrentBuffer = &bufID
	surf.PendingBuffer = nil
}

// releaseBuffer emits wl_buffer.release on the client's own connection.
// Per §4.A.2, this happens whether or not the conversion succeeded.
func (s *Server) releaseBuffer(c *Client, id BufferID) {
	const evRelease = 0
	_ = c.Conn.Send(wire.Header{Sender: uint32(id), Opcode: evRelease, Size: wire.HeaderSize}, nil, nil)
}

func (s *Server) mapToplevel(c *Client, surf *Surface) {
	if c.WindowCount() >= maxWindowsPerClient {
		s.log.Info("rejecting window map: per-client window cap reached", zap.Uint32("client", uint32(c.ID)))
		return
	}
	s.mu.Lock()
	s.nextID.next++
	winID := WindowID(s.nextID.next)
	s.engine.AddWindow(uint64(winID))
	s.mu.Unlock()

	title, appID := "", ""
	if surf.Toplevel != nil {
		title, appID = surf.Toplevel.Title, surf.Toplevel.AppID
	}
	c.AddWindow(&ClientWindow{WindowID: winID, SurfaceID: surf.ID, Title: title, AppID: appID})
	s.publishLayout()
	// §9: a newly mapped toplevel takes keyboard/pointer focus.
	s.switchFocusTo(c.ID, surf.ID)
}

// dispatchToplevel handles xdg_toplevel.{destroy,set_parent,set_title,
// set_app_id,...}. Role promotion and the initial configure happen one
// level up in dispatchXdgSurface, since get_toplevel is an xdg_surface
// request.
func (s *Server) dispatchToplevel(c *Client, obj ObjectID, opcode uint16, body []byte) error {
	const (
		opDestroy  = 0
		opSetTitle = 2
		opSetAppID = 3
	)
	surf, ok := c.Surface(SurfaceID(obj))
	if !ok {
		return fmt.Errorf("protocol: xdg_toplevel request on unknown object %d", obj)
	}
	switch opcode {
	case opSetTitle:
		if surf.Toplevel == nil {
			return &ProtocolViolation{Reason: "set_title before get_toplevel"}
		}
		r := wire.NewReader(body, nil)
		title, err := r.String()
		if err != nil {
			return err
		}
		surf.Toplevel.Title = SanitizeString(title)
		return nil
	case opSetAppID:
		if surf.Toplevel == nil {
			return &ProtocolViolation{Reason: "set_app_id before get_toplevel"}
		}
		r := wire.NewReader(body, nil)
		appID, err := r.String()
		if err != nil {
			return err
		}
		surf.Toplevel.AppID = SanitizeString(appID)
		return nil
	case opDestroy:
		return nil
	default:
		return nil
	}
}

// sendInitialConfigure emits the xdg_surface.configure + xdg_toplevel.
// configure pair that transitions a freshly get_toplevel'd surface into
// AwaitingAck, per §4.A.1. The two events are sent on the client's
// xdg_surface (surfaceObj) and xdg_toplevel (toplevelObj) objects.
func (s *Server) sendInitialConfigure(c *Client, surf *Surface, surfaceObj, toplevelObj ObjectID) {
	s.mu.Lock()
	s.nextID.next++
	serial := uint32(s.nextID.next)
	s.mu.Unlock()

	surf.Toplevel.SendConfigure(serial, s.now())

	const evToplevelConfigure = 0
	tb := wire.NewBuilder()
	tb.PutInt(0) // width: 0 lets the client choose
	tb.PutInt(0) // height: 0 lets the client choose
	tb.PutArray(nil)
	_ = c.Conn.Send(wire.Header{Sender: uint32(toplevelObj), Opcode: evToplevelConfigure, Size: uint16(wire.HeaderSize + len(tb.Bytes()))}, tb.Bytes(), nil)

	const evSurfaceConfigure = 0
	sb := wire.NewBuilder()
	sb.PutUint(serial)
	_ = c.Conn.Send(wire.Header{Sender: uint32(surfaceObj), Opcode: evSurfaceConfigure, Size: uint16(wire.HeaderSize + len(sb.Bytes()))}, sb.Bytes(), nil)
}

// disconnect tears down every piece of state a client owned: its windows
// from the workspace engine, its surfaces from the layer map, its seat
// bindings, and finally its own resource table.
func (s *Server) disconnect(c *Client) {
	windows := c.Windows()

	s.mu.Lock()
	wasFocused := s.focusedClient == c.ID
	s.mu.Unlock()
	if wasFocused {
		// §9: "notify focus management if the focused surface belonged
		// to that client" — emit leave events while the client's seat
		// bindings are still intact, before Seat.Unbind below drops them.
		s.switchFocusTo(0, 0)
	}

	s.mu.Lock()
	for _, w := range windows {
		_ = s.engine.RemoveWindow(uint64(w))
	}
	delete(s.clients, c.ID)
	delete(s.views, c.ID)
	for id, l := range s.layers {
		if l.ClientID == c.ID {
			delete(s.layers, id)
		}
	}
	s.mu.Unlock()

	s.seat.Unbind(c.ID)
	if err := c.Close(); err != nil {
		s.log.Debug("client close error", zap.Uint32("client", uint32(c.ID)), zap.Error(err))
	}
	if len(windows) > 0 {
		s.publishLayout()
	}
	s.log.Info("client disconnected", zap.Uint32("client", uint32(c.ID)))
}

// SweepDeadlines runs CheckDeadline over every client's toplevels,
// reverting any AwaitingAck/AwaitingCommit toplevel past its ack
// deadline to Unmapped. cmd/axiom calls it once a second from its main
// select loop. A reverted toplevel stays Unmapped: no new configure is
// sent to it.
func (s *Server) SweepDeadlines() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	now := s.now()
	for _, c := range clients {
		c.mu.Lock()
		for _, surf := range c.surfaces {
			if surf.Toplevel != nil {
				surf.Toplevel.CheckDeadline(now)
			}
		}
		c.mu.Unlock()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}
