package visualization

import (
	"image/color"

	"swarm-viewer/internal/telemetry"
)

// Style holds the sizes and colors used to draw a frame.
type Style struct {
	Background   color.RGBA
	MarkerColor  color.RGBA
	ArrowColor   color.RGBA
	MarkerRadius float32
	ArrowSize    float64 // Arrowhead wing length in pixels
	ArrowWidth   float32
}

// DefaultStyle returns the swarm palette: pale yellow markers with red velocity arrows on black.
func DefaultStyle() Style {
	return Style{
		Background:   color.RGBA{0, 0, 0, 255},
		MarkerColor:  color.RGBA{255, 255, 200, 255},
		ArrowColor:   color.RGBA{255, 100, 100, 255},
		MarkerRadius: 5,
		ArrowSize:    7,
		ArrowWidth:   2,
	}
}

// Renderer draws decoded frames onto a Canvas.
type Renderer struct {
	projector Projector
	style     Style
}

// NewRenderer creates a renderer using the given mapping and style.
func NewRenderer(projector Projector, style Style) *Renderer {
	return &Renderer{projector: projector, style: style}
}

// DrawFrame clears the canvas and draws every entity in frame order as a marker
// with its velocity arrow. Callers draw only frames that decoded completely.
func (r *Renderer) DrawFrame(c Canvas, frame telemetry.Frame) {
	c.Fill(r.style.Background)

	for _, rec := range frame.Records {
		pos := r.projector.ToScreen(rec.X, rec.Y)
		end := r.projector.VelocityEnd(pos, rec.VX, rec.VY)

		c.FillCircle(pos, r.style.MarkerRadius, r.style.MarkerColor)
		DrawArrow(c, pos, end, r.style.ArrowSize, r.style.ArrowWidth, r.style.ArrowColor)
	}
}
