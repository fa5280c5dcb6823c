package protocol

import (
	"testing"

	"github.com/axiom-wm/axiom/internal/wire"
)

func TestAdvertisedDmabufFormatsMatchesConversionSupport(t *testing.T) {
	got := advertisedDmabufFormats()
	want := map[DmaFourcc]bool{
		FourccXR24: true, FourccAR24: true, FourccXB24: true, FourccAB24: true, FourccNV12: true,
	}
	if len(got) != len(want) {
		t.Fatalf("advertisedDmabufFormats() returned %d formats, want %d", len(got), len(want))
	}
	for _, f := range got {
		if !want[f] {
			t.Fatalf("unexpected advertised format %#x", uint32(f))
		}
	}
}

func TestDispatchLinuxBufferParamsRejectsTiledModifierWithoutGPU(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	c.AddDmaParams(ObjectID(1), &DmaBufImport{})

	addBody := wire.NewBuilder()
	addBody.PutUint(0)
	addBody.PutUint(0)
	addBody.PutUint(64)
	addBody.PutUint(0x1234) // modifier hi: a non-linear modifier
	addBody.PutUint(0)
	if err := s.dispatchLinuxBufferParams(c, ObjectID(1), 1, addBody.Bytes(), []int{3}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	createBody := wire.NewBuilder()
	createBody.PutUint(500)
	createBody.PutInt(16)
	createBody.PutInt(16)
	createBody.PutUint(uint32(FourccXR24))
	createBody.PutUint(0)
	if err := s.dispatchLinuxBufferParams(c, ObjectID(1), 3, createBody.Bytes(), nil); err == nil {
		t.Fatal("expected create_immed to reject a tiled modifier without GPU import available")
	}
}

func TestDispatchLinuxBufferParamsDestroyRemovesPending(t *testing.T) {
	s := newTestServer()
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	c.AddDmaParams(ObjectID(1), &DmaBufImport{})

	if err := s.dispatchLinuxBufferParams(c, ObjectID(1), 0, nil, nil); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	if _, ok := c.DmaParams(ObjectID(1)); ok {
		t.Fatal("expected destroy to remove the pending params object")
	}
}
