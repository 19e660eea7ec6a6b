package visualization

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// arrowWingAngle is the angle between the shaft and each side of the arrowhead.
const arrowWingAngle = math.Pi / 6

// ArrowHead returns the two wing points of an arrowhead of the given size at end.
// The wings sit behind end at ±30° from the direction start→end. A zero-length
// arrow points along +X.
func ArrowHead(start, end r2.Vec, size float64) (wing1, wing2 r2.Vec) {
	d := r2.Sub(end, start)
	angle := math.Atan2(d.Y, d.X)

	wing1 = r2.Sub(end, r2.Scale(size, r2.Vec{X: math.Cos(angle - arrowWingAngle), Y: math.Sin(angle - arrowWingAngle)}))
	wing2 = r2.Sub(end, r2.Scale(size, r2.Vec{X: math.Cos(angle + arrowWingAngle), Y: math.Sin(angle + arrowWingAngle)}))
	return wing1, wing2
}

// DrawArrow draws a shaft from start to end and a filled triangular head at end.
func DrawArrow(c Canvas, start, end image.Point, size float64, width float32, clr color.Color) {
	c.StrokeLine(start, end, width, clr)

	tip := toVec(end)
	wing1, wing2 := ArrowHead(toVec(start), tip, size)
	c.FillTriangle(tip, wing1, wing2, clr)
}

func toVec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}
