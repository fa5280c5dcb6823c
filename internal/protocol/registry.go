package protocol

// GlobalName identifies one of the interfaces the server advertises
// through wl_registry, independent of any client's binding of it.
type GlobalName string

const (
	GlobalCompositor       GlobalName = "wl_compositor"
	GlobalSubcompositor    GlobalName = "wl_subcompositor"
	GlobalShm              GlobalName = "wl_shm"
	GlobalSeat             GlobalName = "wl_seat"
	GlobalOutput           GlobalName = "wl_output"
	GlobalDataDeviceMgr    GlobalName = "wl_data_device_manager"
	GlobalXdgWmBase        GlobalName = "xdg_wm_base"
	GlobalLayerShell       GlobalName = "zwlr_layer_shell_v1"
	GlobalLinuxDmabuf      GlobalName = "zwp_linux_dmabuf_v1"
	GlobalPresentation     GlobalName = "wp_presentation"
	GlobalViewporter       GlobalName = "wp_viewporter"
	GlobalPrimarySelection GlobalName = "zwp_primary_selection_device_manager_v1"
)

// globalVersions pins the version the server implements per interface.
// dispatchRegistry records every bind at this version; the bind request
// carries no client-requested version that is read or honored.
var globalVersions = map[GlobalName]uint32{
	GlobalCompositor:       5,
	GlobalSubcompositor:    1,
	GlobalShm:              1,
	GlobalSeat:             8,
	GlobalOutput:           4,
	GlobalDataDeviceMgr:    3,
	GlobalXdgWmBase:        5,
	GlobalLayerShell:       4,
	GlobalLinuxDmabuf:      4,
	GlobalPresentation:     1,
	GlobalViewporter:       1,
	GlobalPrimarySelection: 1,
}

// Global is one entry in the server's registry: a stable numeric name
// the wire protocol uses in wl_registry.global/global_remove, paired
// with the interface it advertises.
type Global struct {
	Name      uint32
	Interface GlobalName
	Version   uint32
}

// Registry is the server-wide (not per-client) set of advertised
// globals. Each connected client gets its own view via BoundGlobals,
// which records which of these it has actually bound and at what
// version — binding is a per-client wire object, advertisement is not.
type Registry struct {
	globals []Global
	byName  map[uint32]*Global
	nextID  uint32
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[uint32]*Global)}
}

// Advertise adds a global and returns it. Intended to be called once at
// startup per supported interface, in a stable order so global names are
// deterministic across restarts with the same configuration.
func (r *Registry) Advertise(iface GlobalName) Global {
	r.nextID++
	v := globalVersions[iface]
	g := Global{Name: r.nextID, Interface: iface, Version: v}
	r.globals = append(r.globals, g)
	r.byName[g.Name] = &r.globals[len(r.globals)-1]
	return g
}

// All returns every currently advertised global, in advertisement order
// — the order a newly connecting client's wl_registry.global burst
// should be sent in.
func (r *Registry) All() []Global {
	out := make([]Global, len(r.globals))
	copy(out, r.globals)
	return out
}

func (r *Registry) ByName(name uint32) (Global, bool) {
	g, ok := r.byName[name]
	if !ok {
		return Global{}, false
	}
	return *g, true
}

// BoundGlobal is one (name, version, object id) triple a specific client
// has bound.
type BoundGlobal struct {
	Name    uint32
	Object  ObjectID
	Version uint32
}

// ClientRegistryView tracks which globals one client has bound, so the
// server can validate that a request against a given object id is
// dispatched against the interface the client actually bound — binding
// wl_compositor and then sending an xdg_wm_base opcode on that object id
// is a protocol error, not a silent reinterpretation.
type ClientRegistryView struct {
	bound map[ObjectID]BoundGlobal
}

func NewClientRegistryView() *ClientRegistryView {
	return &ClientRegistryView{bound: make(map[ObjectID]BoundGlobal)}
}

func (v *ClientRegistryView) Bind(name uint32, obj ObjectID, version uint32) {
	v.bound[obj] = BoundGlobal{Name: name, Object: obj, Version: version}
}

func (v *ClientRegistryView) Lookup(obj ObjectID) (BoundGlobal, bool) {
	b, ok := v.bound[obj]
	return b, ok
}

func (v *ClientRegistryView) Unbind(obj ObjectID) {
	delete(v.bound, obj)
}
