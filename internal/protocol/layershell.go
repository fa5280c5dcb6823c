package protocol

// Layer is one of the four Z bands a layer-shell surface can occupy.
// Values double as the Z coordinate the render pipeline sorts on.
type Layer float64

const (
	LayerBackground Layer = 0.0
	LayerBottom     Layer = 0.05
	LayerTop        Layer = 0.98
	LayerOverlay    Layer = 0.995
)

// Anchor is a bitmask of the four edges a layer surface can anchor to.
type Anchor uint8

const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// LayerSurface is a surface pinned to a Z-layer rather than placed in a
// workspace column.
type LayerSurface struct {
	SurfaceID           SurfaceID
	ClientID            ClientID
	Output              *int // nil means "all outputs"
	Namespace           string
	Layer               Layer
	Anchor              Anchor
	Margin              struct{ Top, Right, Bottom, Left int32 }
	Exclusive           int32
	KeyboardInteractive bool
	DesiredW, DesiredH  int32
	ConfiguredSerial    uint32
}

// Insets is the (top, right, bottom, left) reserved edge set a group of
// layer surfaces contributes, in the same shape as workspace.Insets —
// duplicated here rather than imported so the protocol package has no
// dependency on the workspace package (only the Server's glue code does).
type Insets struct {
	Top, Right, Bottom, Left float64
}

// ComputeReservedInsets is the element-wise maximum of exclusive zones
// of mapped layer surfaces per edge, respecting anchor orientation: a
// layer anchored top-only with exclusive zone E contributes E to top;
// anchored top+bottom contributes nothing.
func ComputeReservedInsets(layers []*LayerSurface) Insets {
	var out Insets
	for _, l := range layers {
		if l.Exclusive <= 0 {
			continue
		}
		e := float64(l.Exclusive)
		anchoredTop := l.Anchor&AnchorTop != 0
		anchoredBottom := l.Anchor&AnchorBottom != 0
		anchoredLeft := l.Anchor&AnchorLeft != 0
		anchoredRight := l.Anchor&AnchorRight != 0

		switch {
		case anchoredTop && !anchoredBottom:
			out.Top = max(out.Top, e)
		case anchoredBottom && !anchoredTop:
			out.Bottom = max(out.Bottom, e)
		}
		switch {
		case anchoredLeft && !anchoredRight:
			out.Left = max(out.Left, e)
		case anchoredRight && !anchoredLeft:
			out.Right = max(out.Right, e)
		}
	}
	return out
}
