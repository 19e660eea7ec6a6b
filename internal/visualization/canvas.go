package visualization

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// Canvas is the set of drawing primitives the renderer needs. Implementations must
// accept coordinates outside their bounds without failing.
type Canvas interface {
	Fill(clr color.Color)
	FillCircle(center image.Point, radius float32, clr color.Color)
	StrokeLine(from, to image.Point, width float32, clr color.Color)
	FillTriangle(a, b, c r2.Vec, clr color.Color)
}

// EventKind identifies an input event.
type EventKind int

const (
	EventCloseRequested EventKind = iota + 1 // Window close button or Escape
)

func (k EventKind) String() string {
	switch k {
	case EventCloseRequested:
		return "close_requested"
	default:
		return "unknown"
	}
}

// Event is an input event drained by the render loop once per tick.
type Event struct {
	Kind EventKind
}

// Overlay is the status text shown on top of the frame.
type Overlay struct {
	Entities   int
	MeanSpeed  float64
	MaxSpeed   float64
	Decoded    uint64 // Frames displayed
	Rejected   uint64 // Messages that failed to decode
	RecvErrors uint64
}

// Surface is a rendering target with an input source, owned by the render loop.
type Surface interface {
	Canvas
	// PollEvents drains pending input events without blocking.
	PollEvents() []Event
	// SetOverlay replaces the status text.
	SetOverlay(Overlay)
	// Present makes the current canvas content visible.
	Present()
	// Close releases the surface. Safe to call more than once.
	Close() error
}

func toPoint32(p image.Point) (float32, float32) {
	return float32(p.X), float32(p.Y)
}
