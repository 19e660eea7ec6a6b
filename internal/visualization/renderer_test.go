package visualization

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"swarm-viewer/internal/telemetry"
)

func formatRecord(values ...float64) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteString(telemetry.FieldDelimiter)
	}
	return b.String()
}

type drawCall struct {
	op     string
	points []r2.Vec
	clr    color.Color
}

// recordingCanvas remembers every primitive in call order.
type recordingCanvas struct {
	calls []drawCall
}

func (c *recordingCanvas) Fill(clr color.Color) {
	c.calls = append(c.calls, drawCall{op: "fill", clr: clr})
}

func (c *recordingCanvas) FillCircle(center image.Point, radius float32, clr color.Color) {
	c.calls = append(c.calls, drawCall{op: "circle", points: []r2.Vec{toVec(center)}, clr: clr})
}

func (c *recordingCanvas) StrokeLine(from, to image.Point, width float32, clr color.Color) {
	c.calls = append(c.calls, drawCall{op: "line", points: []r2.Vec{toVec(from), toVec(to)}, clr: clr})
}

func (c *recordingCanvas) FillTriangle(a, b, v r2.Vec, clr color.Color) {
	c.calls = append(c.calls, drawCall{op: "triangle", points: []r2.Vec{a, b, v}, clr: clr})
}

func (c *recordingCanvas) ops() string {
	names := make([]string, len(c.calls))
	for i, call := range c.calls {
		names[i] = call.op
	}
	return strings.Join(names, ",")
}

func near(a, b r2.Vec) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestArrowHeadPointsBackAlongShaft(t *testing.T) {
	start := r2.Vec{X: 0, Y: 0}
	end := r2.Vec{X: 10, Y: 0}

	wing1, wing2 := ArrowHead(start, end, 7)

	cos30, sin30 := 7*math.Cos(math.Pi/6), 7*math.Sin(math.Pi/6)
	if want := (r2.Vec{X: 10 - cos30, Y: sin30}); !near(wing1, want) {
		t.Errorf("wing1 = %v, want %v", wing1, want)
	}
	if want := (r2.Vec{X: 10 - cos30, Y: -sin30}); !near(wing2, want) {
		t.Errorf("wing2 = %v, want %v", wing2, want)
	}
}

func TestArrowHeadGeometry(t *testing.T) {
	tests := []struct {
		name       string
		start, end r2.Vec
	}{
		{"diagonal", r2.Vec{X: 440, Y: 480}, r2.Vec{X: 490, Y: 430}},
		{"pointing up", r2.Vec{X: 5, Y: 5}, r2.Vec{X: 5, Y: -20}},
		{"zero length", r2.Vec{X: 3, Y: 3}, r2.Vec{X: 3, Y: 3}},
	}
	const size = 7.0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wing1, wing2 := ArrowHead(tt.start, tt.end, size)
			for _, w := range []r2.Vec{wing1, wing2} {
				if d := r2.Norm(r2.Sub(w, tt.end)); math.Abs(d-size) > 1e-9 {
					t.Errorf("wing %v is %v from the tip, want %v", w, d, size)
				}
			}
			// The wings are 60° apart, so the distance between them equals size.
			if d := r2.Norm(r2.Sub(wing1, wing2)); math.Abs(d-size) > 1e-9 {
				t.Errorf("wings are %v apart, want %v", d, size)
			}
		})
	}
}

func TestDrawFrame(t *testing.T) {
	frame, err := telemetry.Decode("1.0;2.0;0.5;-0.5;3.0;4.0;0.1;0.1;")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	style := DefaultStyle()
	canvas := &recordingCanvas{}

	NewRenderer(NewLinearProjector(), style).DrawFrame(canvas, frame)

	if got, want := canvas.ops(), "fill,circle,line,triangle,circle,line,triangle"; got != want {
		t.Fatalf("draw calls = %s, want %s", got, want)
	}
	if canvas.calls[0].clr != style.Background {
		t.Errorf("cleared with %v, want background %v", canvas.calls[0].clr, style.Background)
	}
	if got := canvas.calls[1].points[0]; !near(got, r2.Vec{X: 440, Y: 480}) {
		t.Errorf("first marker at %v, want (440, 480)", got)
	}
	shaft := canvas.calls[2].points
	if !near(shaft[0], r2.Vec{X: 440, Y: 480}) || !near(shaft[1], r2.Vec{X: 490, Y: 430}) {
		t.Errorf("first arrow shaft = %v, want (440,480)->(490,430)", shaft)
	}
	if tip := canvas.calls[3].points[0]; !near(tip, r2.Vec{X: 490, Y: 430}) {
		t.Errorf("arrowhead tip = %v, want (490, 430)", tip)
	}
	if got := canvas.calls[4].points[0]; !near(got, r2.Vec{X: 520, Y: 560}) {
		t.Errorf("second marker at %v, want (520, 560)", got)
	}
}

func TestDrawEmptyFrameClears(t *testing.T) {
	canvas := &recordingCanvas{}
	NewRenderer(NewLinearProjector(), DefaultStyle()).DrawFrame(canvas, telemetry.Frame{})
	if got := canvas.ops(); got != "fill" {
		t.Errorf("draw calls = %s, want fill", got)
	}
}

func TestHeadlessSurfaceCountsShapes(t *testing.T) {
	surface := NewHeadlessSurface(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
	frame, err := telemetry.Decode(formatRecord(0, 0, 0.1, 0.1, 1, 1, 0.1, 0.1))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	NewRenderer(NewLinearProjector(), DefaultStyle()).DrawFrame(surface, frame)
	surface.Present()
	surface.Present()

	if got := surface.Shapes(); got != 6 {
		t.Errorf("Shapes = %d, want 6", got)
	}
	if got := surface.Presented(); got != 2 {
		t.Errorf("Presented = %d, want 2", got)
	}
	if events := surface.PollEvents(); len(events) != 0 {
		t.Errorf("headless surface reported events %v", events)
	}
	if err := surface.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := surface.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
