package telemetry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// Summary holds aggregate statistics of a frame for on-screen display.
type Summary struct {
	Count     int
	MeanSpeed float64
	MaxSpeed  float64
	Centroid  r2.Vec // Mean position in simulation space
}

// Summarize computes frame statistics. An empty frame yields the zero Summary.
func Summarize(frame Frame) Summary {
	n := frame.Len()
	if n == 0 {
		return Summary{}
	}

	speeds := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, rec := range frame.Records {
		speeds[i] = rec.Speed()
		xs[i] = rec.X
		ys[i] = rec.Y
	}

	return Summary{
		Count:     n,
		MeanSpeed: stat.Mean(speeds, nil), // nil weights: all entities count equally
		MaxSpeed:  floats.Max(speeds),
		Centroid:  r2.Vec{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)},
	}
}
