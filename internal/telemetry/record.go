package telemetry

import (
	"fmt"
	"math"
)

// FieldsPerRecord is the number of semicolon-separated fields that make up one entity.
const FieldsPerRecord = 4

// EntityRecord is the position and velocity of one simulated entity at a single tick.
type EntityRecord struct {
	X, Y   float64 // Position in simulation space
	VX, VY float64 // Velocity in simulation units per tick
}

// Speed returns the magnitude of the velocity.
func (r EntityRecord) Speed() float64 {
	return math.Hypot(r.VX, r.VY)
}

// String representation for logging
func (r EntityRecord) String() string {
	return fmt.Sprintf("Entity Pos: [%.3f, %.3f] Vel: [%.3f, %.3f]", r.X, r.Y, r.VX, r.VY)
}

// Frame is the complete set of entities decoded from one telemetry message.
// A Frame is rebuilt from scratch for every message; it carries no identity across frames.
type Frame struct {
	Records []EntityRecord
	Dropped int // Dangling trailing fields that did not form a full record
}

// Len returns the number of entities in the frame.
func (f Frame) Len() int {
	return len(f.Records)
}
