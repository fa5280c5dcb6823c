package protocol

import "testing"

func TestComputeReservedInsetsSingleEdgeAnchors(t *testing.T) {
	layers := []*LayerSurface{
		{Anchor: AnchorTop, Exclusive: 30},
		{Anchor: AnchorBottom, Exclusive: 10},
		{Anchor: AnchorLeft, Exclusive: 5},
	}
	got := ComputeReservedInsets(layers)
	want := Insets{Top: 30, Bottom: 10, Left: 5}
	if got != want {
		t.Fatalf("ComputeReservedInsets() = %+v, want %+v", got, want)
	}
}

func TestComputeReservedInsetsOpposingAnchorsContributeNothing(t *testing.T) {
	layers := []*LayerSurface{
		{Anchor: AnchorTop | AnchorBottom, Exclusive: 50},
	}
	got := ComputeReservedInsets(layers)
	if got != (Insets{}) {
		t.Fatalf("a layer anchored to both opposing edges must not reserve an inset, got %+v", got)
	}
}

func TestComputeReservedInsetsTakesMaxPerEdge(t *testing.T) {
	layers := []*LayerSurface{
		{Anchor: AnchorTop, Exclusive: 10},
		{Anchor: AnchorTop, Exclusive: 40},
		{Anchor: AnchorTop, Exclusive: 25},
	}
	got := ComputeReservedInsets(layers)
	if got.Top != 40 {
		t.Fatalf("expected the max exclusive zone (40) to win, got %v", got.Top)
	}
}

func TestComputeReservedInsetsIgnoresNonExclusiveLayers(t *testing.T) {
	layers := []*LayerSurface{
		{Anchor: AnchorTop, Exclusive: 0},
		{Anchor: AnchorTop, Exclusive: -5},
	}
	got := ComputeReservedInsets(layers)
	if got != (Insets{}) {
		t.Fatalf("non-positive exclusive zones must not contribute, got %+v", got)
	}
}
