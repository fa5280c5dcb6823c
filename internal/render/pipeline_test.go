package render

import (
	"context"
	"testing"

	"github.com/axiom-wm/axiom/internal/snapshot"
)

func testPipeline() (*Pipeline, Device) {
	dev := NewNullDevice().(*nullDevice)
	p := New(dev, Config{TexturePoolCap: 8}, nil)
	p.Resize(1920, 1080)
	return p, dev
}

func TestRenderFrameSkipsWhenDamageEmpty(t *testing.T) {
	p, dev := testPipeline()
	snap := snapshot.New()
	snap.PublishWindows([]snapshot.WindowPlacement{
		{WindowID: 1, X: 0, Y: 0, W: 100, H: 100, Opacity: 1},
	})
	p.SyncFromShared(snap)

	stats := p.RenderFrame(context.Background(), snap)
	if stats.TotalDrawCalls != 0 {
		t.Fatalf("expected no draw calls on empty damage, got %d", stats.TotalDrawCalls)
	}
	if nd := dev.(*nullDevice); nd.draws != 0 {
		t.Fatalf("device recorded %d draws, want 0", nd.draws)
	}
}

func TestRenderFrameClearsDamageOnSuccess(t *testing.T) {
	p, _ := testPipeline()
	snap := snapshot.New()
	snap.PublishWindows([]snapshot.WindowPlacement{
		{WindowID: 1, X: 0, Y: 0, W: 100, H: 100, Opacity: 1},
	})
	snap.PublishDamage(snapshot.DamageRegion{X: 0, Y: 0, W: 100, H: 100})
	p.SyncFromShared(snap)
	_ = p.ProcessPendingTextureUpdates(snap)

	snap.QueueUpload(snapshot.TextureUpload{SurfaceID: 1, Width: 100, Height: 100, RGBA: make([]byte, 100*100*4)})
	_ = p.ProcessPendingTextureUpdates(snap)

	stats := p.RenderFrame(context.Background(), snap)
	if stats.TotalDrawCalls == 0 {
		t.Fatalf("expected draw calls when damage present and texture uploaded")
	}
	if remaining := snap.TakeDamage(); len(remaining) != 0 {
		t.Fatalf("expected damage cleared after successful render, got %v", remaining)
	}
}

func TestOcclusionCullsFullyCoveredWindow(t *testing.T) {
	p, _ := testPipeline()
	snap := snapshot.New()
	snap.PublishWindows([]snapshot.WindowPlacement{
		{WindowID: 1, X: 0, Y: 0, W: 100, H: 100, Opacity: 1},
		{WindowID: 2, X: 0, Y: 0, W: 200, H: 200, Opacity: 1}, // fully covers window 1, drawn above it
	})
	snap.PublishDamage(snapshot.DamageRegion{X: 0, Y: 0, W: 200, H: 200})
	p.SyncFromShared(snap)

	occluded := p.computeOcclusion()
	if !occluded[0] {
		t.Fatalf("expected window 1 to be occluded by the fully-covering opaque window above it")
	}
	if occluded[1] {
		t.Fatalf("topmost window must never be occluded")
	}
}

func TestOcclusionSkipsTransparentCover(t *testing.T) {
	p, _ := testPipeline()
	snap := snapshot.New()
	snap.PublishWindows([]snapshot.WindowPlacement{
		{WindowID: 1, X: 0, Y: 0, W: 100, H: 100, Opacity: 1},
		{WindowID: 2, X: 0, Y: 0, W: 200, H: 200, Opacity: 0.5},
	})
	p.SyncFromShared(snap)

	occluded := p.computeOcclusion()
	if occluded[0] {
		t.Fatalf("a translucent window above must not occlude")
	}
}

func TestSyncFromSharedFreesRemovedWindowTexture(t *testing.T) {
	p, dev := testPipeline()
	snap := snapshot.New()
	snap.PublishWindows([]snapshot.WindowPlacement{{WindowID: 1, W: 10, H: 10, Opacity: 1}})
	p.SyncFromShared(snap)
	snap.QueueUpload(snapshot.TextureUpload{SurfaceID: 1, Width: 10, Height: 10, RGBA: make([]byte, 10*10*4)})
	_ = p.ProcessPendingTextureUpdates(snap)

	snap.PublishWindows(nil)
	p.SyncFromShared(snap)

	nd := dev.(*nullDevice)
	if nd.destroyed != 0 {
		// texture should return to the pool, not be destroyed, since
		// the pool has spare capacity.
		t.Fatalf("expected texture recycled into pool, got %d destroyed", nd.destroyed)
	}
	if len(p.windows) != 0 {
		t.Fatalf("expected no windows after publishing an empty list")
	}
}
