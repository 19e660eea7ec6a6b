package visualization

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 800
	DefaultTitle  = "Swarm Viewer"
)

// WindowSurface is an ebiten-backed Surface. Frames are drawn into an offscreen
// canvas which is copied to the window on every ebiten Draw, so the last good
// frame stays on screen until a new one is drawn.
type WindowSurface struct {
	canvas *ebiten.Image
	white  *ebiten.Image // Source texture for filled triangles
	solid  *ebiten.Image // 1x1 sub-image of white

	width  int
	height int

	showOverlay bool
	overlay     Overlay
	presented   uint64
	closed      bool
}

// NewWindowSurface configures the window and allocates the canvas. It must be
// called before ebiten.RunGame.
func NewWindowSurface(width, height int, title string, showOverlay bool) *WindowSurface {
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	// The close button is reported as an event so shutdown runs through the render loop.
	ebiten.SetWindowClosingHandled(true)

	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)

	s := &WindowSurface{
		canvas:      ebiten.NewImage(width, height),
		white:       white,
		solid:       white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image),
		width:       width,
		height:      height,
		showOverlay: showOverlay,
	}
	s.canvas.Fill(DefaultStyle().Background)
	return s
}

// Fill implements Canvas.
func (s *WindowSurface) Fill(clr color.Color) {
	s.canvas.Fill(clr)
}

// FillCircle implements Canvas.
func (s *WindowSurface) FillCircle(center image.Point, radius float32, clr color.Color) {
	x, y := toPoint32(center)
	vector.DrawFilledCircle(s.canvas, x, y, radius, clr, true)
}

// StrokeLine implements Canvas.
func (s *WindowSurface) StrokeLine(from, to image.Point, width float32, clr color.Color) {
	x0, y0 := toPoint32(from)
	x1, y1 := toPoint32(to)
	vector.StrokeLine(s.canvas, x0, y0, x1, y1, width, clr, true)
}

// FillTriangle implements Canvas.
func (s *WindowSurface) FillTriangle(a, b, c r2.Vec, clr color.Color) {
	var path vector.Path
	path.MoveTo(float32(a.X), float32(a.Y))
	path.LineTo(float32(b.X), float32(b.Y))
	path.LineTo(float32(c.X), float32(c.Y))
	path.Close()

	vertices, indices := path.AppendVerticesAndIndicesForFilling(nil, nil)
	cr, cg, cb, ca := clr.RGBA()
	for i := range vertices {
		vertices[i].SrcX = 1
		vertices[i].SrcY = 1
		vertices[i].ColorR = float32(cr) / 0xffff
		vertices[i].ColorG = float32(cg) / 0xffff
		vertices[i].ColorB = float32(cb) / 0xffff
		vertices[i].ColorA = float32(ca) / 0xffff
	}
	s.canvas.DrawTriangles(vertices, indices, s.solid, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

// PollEvents implements Surface. Closing the window or pressing Escape requests shutdown.
func (s *WindowSurface) PollEvents() []Event {
	var events []Event
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, Event{Kind: EventCloseRequested})
	}
	return events
}

// SetOverlay implements Surface.
func (s *WindowSurface) SetOverlay(o Overlay) {
	s.overlay = o
}

// Present implements Surface. The canvas reaches the screen on ebiten's next Draw.
func (s *WindowSurface) Present() {
	s.presented++
}

// Close implements Surface.
func (s *WindowSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.canvas.Deallocate()
	s.white.Deallocate()
	return nil
}

// Draw copies the canvas to the screen. Called by ebiten every frame.
func (s *WindowSurface) Draw(screen *ebiten.Image) {
	screen.DrawImage(s.canvas, nil)
	if s.showOverlay {
		s.drawDebugInfo(screen)
	}
}

func (s *WindowSurface) drawDebugInfo(screen *ebiten.Image) {
	msg := fmt.Sprintf("FPS: %.1f, TPS: %.1f\n", ebiten.ActualFPS(), ebiten.ActualTPS())
	msg += fmt.Sprintf("Entities: %d\n", s.overlay.Entities)
	msg += fmt.Sprintf("Speed: mean %.3f, max %.3f\n", s.overlay.MeanSpeed, s.overlay.MaxSpeed)
	msg += fmt.Sprintf("Frames: %d shown, %d rejected, %d receive errors", s.overlay.Decoded, s.overlay.Rejected, s.overlay.RecvErrors)
	ebitenutil.DebugPrint(screen, msg)
}

// Layout keeps the logical screen at the canvas size regardless of window size.
func (s *WindowSurface) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.width, s.height
}
