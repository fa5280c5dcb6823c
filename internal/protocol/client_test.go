package protocol

import "testing"

func TestClientSurfaceAndWindowCounts(t *testing.T) {
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())

	c.AddSurface(&Surface{ID: 10})
	c.AddSurface(&Surface{ID: 11})
	if got := c.SurfaceCount(); got != 2 {
		t.Fatalf("SurfaceCount() = %d, want 2", got)
	}

	c.AddWindow(&ClientWindow{WindowID: 1, SurfaceID: 10})
	if got := c.WindowCount(); got != 1 {
		t.Fatalf("WindowCount() = %d, want 1", got)
	}

	c.RemoveWindow(1)
	if got := c.WindowCount(); got != 0 {
		t.Fatalf("WindowCount() after removal = %d, want 0", got)
	}
}

func TestClientAliasSurfaceSharesUnderlyingSurface(t *testing.T) {
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	surf := &Surface{ID: 5, Scale: 1}
	c.AddSurface(surf)

	c.AliasSurface(SurfaceID(99), surf)
	aliased, ok := c.Surface(SurfaceID(99))
	if !ok {
		t.Fatal("expected the alias to resolve")
	}
	if aliased != surf {
		t.Fatal("expected the alias to point at the same Surface value")
	}

	aliased.Scale = 2
	original, _ := c.Surface(5)
	if original.Scale != 2 {
		t.Fatal("expected mutation through the alias to be visible via the original id")
	}
}

func TestClientWindowsListsAllMappedWindows(t *testing.T) {
	c := NewClient(1, nil, 0, 0, fixedTimeNow, zapNop())
	c.AddWindow(&ClientWindow{WindowID: 1})
	c.AddWindow(&ClientWindow{WindowID: 2})

	got := c.Windows()
	if len(got) != 2 {
		t.Fatalf("Windows() returned %d entries, want 2", len(got))
	}
}
