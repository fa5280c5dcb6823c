package protocol

import "testing"

func TestRegistryAdvertiseAssignsStableNames(t *testing.T) {
	r := NewRegistry()
	a := r.Advertise(GlobalCompositor)
	b := r.Advertise(GlobalShm)

	if a.Name == b.Name {
		t.Fatal("expected distinct global names")
	}
	got, ok := r.ByName(a.Name)
	if !ok || got.Interface != GlobalCompositor {
		t.Fatalf("ByName(%d) = %+v, %v, want GlobalCompositor", a.Name, got, ok)
	}

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d globals, want 2", len(all))
	}
}

func TestClientRegistryViewBindAndUnbind(t *testing.T) {
	v := NewClientRegistryView()
	v.Bind(1, ObjectID(50), 3)

	got, ok := v.Lookup(ObjectID(50))
	if !ok || got.Name != 1 || got.Version != 3 {
		t.Fatalf("Lookup() = %+v, %v, want Name=1 Version=3", got, ok)
	}

	v.Unbind(ObjectID(50))
	if _, ok := v.Lookup(ObjectID(50)); ok {
		t.Fatal("expected the binding to be gone after Unbind")
	}
}
