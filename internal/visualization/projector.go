package visualization

import (
	"image"
	"math"
)

// Default mapping from the simulation window (about -10..+10 on both axes) onto an 800x800 canvas.
const (
	DefaultOffset      = 10.0
	DefaultScale       = 40.0
	DefaultVectorScale = 100.0
)

// Projector maps simulation-space coordinates to screen pixels.
type Projector interface {
	// ToScreen returns the pixel for a simulation-space position.
	ToScreen(x, y float64) image.Point
	// VelocityEnd returns the pixel where the velocity indicator starting at origin ends.
	VelocityEnd(origin image.Point, vx, vy float64) image.Point
}

// LinearProjector applies screen = round((v + Offset) * Scale) on both axes.
// Points outside the canvas are returned as-is; drawing clips them.
type LinearProjector struct {
	Offset      float64
	Scale       float64
	VectorScale float64 // Pixels per unit of velocity
}

// NewLinearProjector creates a projector with the default mapping.
func NewLinearProjector() LinearProjector {
	return LinearProjector{Offset: DefaultOffset, Scale: DefaultScale, VectorScale: DefaultVectorScale}
}

// ToScreen implements Projector.
func (p LinearProjector) ToScreen(x, y float64) image.Point {
	return image.Point{
		X: int(math.Round((x + p.Offset) * p.Scale)),
		Y: int(math.Round((y + p.Offset) * p.Scale)),
	}
}

// VelocityEnd implements Projector. The velocity offset is truncated toward zero.
func (p LinearProjector) VelocityEnd(origin image.Point, vx, vy float64) image.Point {
	return origin.Add(image.Point{
		X: int(vx * p.VectorScale),
		Y: int(vy * p.VectorScale),
	})
}

// ToWorld is the inverse of ToScreen, exact up to 1/Scale simulation units.
func (p LinearProjector) ToWorld(pt image.Point) (x, y float64) {
	return float64(pt.X)/p.Scale - p.Offset, float64(pt.Y)/p.Scale - p.Offset
}
