// Package render implements the GPU compositing pipeline: it consumes
// the shared snapshot published by the protocol server and turns it
// into damage-scissored draw calls against the presenter surface.
//
// Like the teacher's shiny/driver packages, the actual GPU command
// submission sits behind a small device interface so the pipeline's
// bookkeeping (texture pool, damage math, uniform layout) can be
// exercised without a live GPU context. TextureHandle, Device and
// Queue play the role shiny's screen.Texture / gldriver context split
// plays: one side is windowing-system glue, the other is portable
// logic.
package render

import "github.com/axiom-wm/axiom/internal/geom"

// TextureFormat mirrors the handful of formats the protocol server's
// buffer ingestion ever produces (always tightly-packed RGBA8 by the
// time it reaches the renderer; DMA-BUF GPU-import textures may carry
// a vendor-specific format tag but are otherwise opaque here).
type TextureFormat int

const (
	FormatRGBA8 TextureFormat = iota
	FormatExternalImport
)

// TextureKey is the texture pool's identity: same (size, format) can
// reuse a prior allocation.
type TextureKey struct {
	Width, Height int
	Format        TextureFormat
}

// Texture is a GPU-resident image plus the key it was allocated under.
// Device implementations hand these out; the render pipeline never
// reaches into device-specific fields.
type Texture struct {
	Key    TextureKey
	Handle TextureHandle
}

// TextureHandle is an opaque device-specific resource id (e.g. a GL
// texture name or a Vulkan image view). It is boxed as `any` because
// the two presenter backends (glfw-backed GL and the headless stub)
// have incompatible concrete handle types.
type TextureHandle any

// Device is the minimal GPU surface the render pipeline drives. A real
// backend wraps an OpenGL or Vulkan context; the headless backend
// wraps an in-memory framebuffer for tests and CI.
type Device interface {
	// CreateTexture allocates a new device texture of the given key.
	CreateTexture(key TextureKey) (TextureHandle, error)
	// WriteTexture uploads aligned RGBA bytes into an existing texture
	// at the given sub-rectangle (the whole texture when rect equals
	// its bounds).
	WriteTexture(h TextureHandle, rect geom.Rect, bytesPerRow int, rgba []byte) error
	// DestroyTexture releases a device texture. Called only when a
	// texture is evicted from the pool, never while still referenced
	// by a live window.
	DestroyTexture(h TextureHandle)
	// SetScissor restricts rasterization to the given framebuffer
	// rectangle, in unsigned pixel space.
	SetScissor(rect geom.Rect)
	// DrawQuad issues one indexed draw of a unit quad textured with h,
	// transformed by the given per-window uniforms.
	DrawQuad(h TextureHandle, u Uniforms)
}

// Uniforms is the per-window per-draw uniform block: model transform
// (2D scale+translate into viewport NDC), opacity, corner radius, and
// drop-shadow parameters. Bind groups are built from this plus the
// window's sampled texture.
type Uniforms struct {
	ScaleX, ScaleY         float64
	TranslateX, TranslateY float64
	Opacity                float32
	CornerRadius           float32
	ShadowOffsetX          float32
	ShadowOffsetY          float32
	ShadowBlur             float32
	ShadowOpacity          float32
}

// TextureAlignment is the assumed hardware row-stride alignment for
// texture copies (bytes_per_row must be a multiple of this).
const TextureAlignment = 256
