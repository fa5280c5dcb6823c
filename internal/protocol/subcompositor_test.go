package protocol

import (
	"testing"

	"github.com/axiom-wm/axiom/internal/wire"
)

func TestDispatchSubcompositorGetSubsurfaceAliasesParent(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())

	parent := &Surface{ID: 1, ClientID: c.ID, Role: RoleToplevel}
	c.AddSurface(parent)
	child := &Surface{ID: 2, ClientID: c.ID}
	c.AddSurface(child)

	body := wire.NewBuilder()
	body.PutUint(50) // new_id
	body.PutUint(2)  // surface
	body.PutUint(1)  // parent
	if err := s.dispatchSubcompositorGlobal(c, 0, body.Bytes()); err != nil {
		t.Fatalf("get_subsurface failed: %v", err)
	}

	aliased, ok := c.Surface(SurfaceID(50))
	if !ok || aliased != child {
		t.Fatal("expected the new_id to alias the child surface")
	}
	if child.Role != RoleSubsurface {
		t.Fatalf("Role = %v, want RoleSubsurface", child.Role)
	}
	if child.Parent == nil || *child.Parent != parent.ID {
		t.Fatalf("Parent = %v, want %d", child.Parent, parent.ID)
	}
	if got := c.ObjectKind(ObjectID(50)); got != ResourceSubsurface {
		t.Fatalf("ObjectKind(50) = %v, want ResourceSubsurface", got)
	}
}

func TestDispatchSubcompositorGetSubsurfaceRejectsUnknownSurface(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())

	body := wire.NewBuilder()
	body.PutUint(50)
	body.PutUint(99) // never created
	body.PutUint(1)
	if err := s.dispatchSubcompositorGlobal(c, 0, body.Bytes()); err == nil {
		t.Fatal("expected an error binding get_subsurface against an unknown surface")
	}
}

func TestDispatchSubsurfaceSetPositionWritesOffset(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	surf := &Surface{ID: 2, ClientID: c.ID, Role: RoleSubsurface}
	c.AddSurface(surf)

	body := wire.NewBuilder()
	body.PutInt(12)
	body.PutInt(-4)
	if err := s.dispatchSubsurface(c, ObjectID(2), 0, body.Bytes()); err != nil {
		t.Fatalf("set_position failed: %v", err)
	}
	if surf.SubsurfacePos != (Point{X: 12, Y: -4}) {
		t.Fatalf("SubsurfacePos = %+v, want {12 -4}", surf.SubsurfacePos)
	}
}
