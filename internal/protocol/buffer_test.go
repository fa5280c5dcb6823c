package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestConvertSHMToRGBAXRGBForcesOpaque(t *testing.T) {
	// One 2x1 XRGB8888 image: pixel 0 is B,G,R,X = (10,20,30,0xff), pixel
	// 1 is (40,50,60,0x00), whose X byte the conversion ignores.
	src := []byte{10, 20, 30, 0xff, 40, 50, 60, 0x00}
	got, err := ConvertSHMToRGBA(src, 2, 1, 8, ShmFormatXRGB8888)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{30, 20, 10, 0xff, 60, 50, 40, 0xff}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected RGBA bytes (-want +got):\n%s", diff)
	}
	if len(got) != 2*1*4 {
		t.Fatalf("expected exactly width*height*4 bytes, got %d", len(got))
	}
}

func TestConvertSHMToRGBAARGBPreservesAlpha(t *testing.T) {
	src := []byte{10, 20, 30, 0x80}
	got, err := ConvertSHMToRGBA(src, 1, 1, 4, ShmFormatARGB8888)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{30, 20, 10, 0x80}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected RGBA bytes (-want +got):\n%s", diff)
	}
}

func TestConvertSHMToRGBAXBGRNoSwizzle(t *testing.T) {
	src := []byte{10, 20, 30, 0x00}
	got, err := ConvertSHMToRGBA(src, 1, 1, 4, ShmFormatXBGR8888)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 20, 30, 0xff}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected RGBA bytes (-want +got):\n%s", diff)
	}
}

func TestConvertSHMToRGBARejectsUnsupportedFormat(t *testing.T) {
	if _, err := ConvertSHMToRGBA(nil, 1, 1, 4, ShmFormat(0xdead)); err == nil {
		t.Fatal("expected an error for an unrecognized shm format")
	}
}

func TestConvertSHMToRGBARejectsShortBuffer(t *testing.T) {
	if _, err := ConvertSHMToRGBA([]byte{1, 2, 3}, 4, 1, 16, ShmFormatARGB8888); err == nil {
		t.Fatal("expected an error when the source buffer is shorter than stride*height")
	}
}

func TestConvertDMABUFToRGBAUnsupportedFourcc(t *testing.T) {
	_, err := ConvertDMABUFToRGBA(DmaBufImport{Width: 1, Height: 1, Format: DmaFourcc(0xdead)}, zap.NewNop())
	if err == nil {
		t.Fatal("expected an error for an unrecognized dma-buf fourcc")
	}
}

func TestAcceptModifier(t *testing.T) {
	if !AcceptModifier(ModifierLinear, false) {
		t.Fatal("linear modifier must always be accepted")
	}
	if AcceptModifier(0x1234, false) {
		t.Fatal("tiled modifier must be rejected without gpu import")
	}
	if !AcceptModifier(0x1234, true) {
		t.Fatal("tiled modifier must be accepted once gpu import is available")
	}
}
