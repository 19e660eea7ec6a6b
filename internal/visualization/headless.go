package visualization

import (
	"image"
	"image/color"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultReportEvery is how many presented frames pass between headless status lines (5s at 60 Hz).
const DefaultReportEvery = 300

// HeadlessSurface is a Surface without a window. It counts draw calls and logs the
// overlay periodically, for running the viewer on machines without a display.
type HeadlessSurface struct {
	logger      *slog.Logger
	reportEvery int

	overlay   Overlay
	shapes    int // Primitives drawn since the last Fill
	presented int
	closed    bool
}

// NewHeadlessSurface creates a headless surface that logs every reportEvery presents.
func NewHeadlessSurface(logger *slog.Logger, reportEvery int) *HeadlessSurface {
	if reportEvery <= 0 {
		reportEvery = DefaultReportEvery
	}
	return &HeadlessSurface{logger: logger, reportEvery: reportEvery}
}

func (s *HeadlessSurface) Fill(color.Color) { s.shapes = 0 }

func (s *HeadlessSurface) FillCircle(image.Point, float32, color.Color) { s.shapes++ }

func (s *HeadlessSurface) StrokeLine(image.Point, image.Point, float32, color.Color) { s.shapes++ }

func (s *HeadlessSurface) FillTriangle(r2.Vec, r2.Vec, r2.Vec, color.Color) { s.shapes++ }

// PollEvents never reports input; headless sessions end by signal or engine exit.
func (s *HeadlessSurface) PollEvents() []Event { return nil }

func (s *HeadlessSurface) SetOverlay(o Overlay) { s.overlay = o }

func (s *HeadlessSurface) Present() {
	s.presented++
	if s.presented%s.reportEvery == 0 {
		s.logger.Info("headless frame status",
			"presented", s.presented,
			"entities", s.overlay.Entities,
			"shapes", s.shapes,
			"mean_speed", s.overlay.MeanSpeed,
			"decoded", s.overlay.Decoded,
			"rejected", s.overlay.Rejected,
		)
	}
}

// Presented returns how many times Present was called.
func (s *HeadlessSurface) Presented() int { return s.presented }

// Shapes returns the number of primitives in the current canvas content.
func (s *HeadlessSurface) Shapes() int { return s.shapes }

func (s *HeadlessSurface) Close() error {
	if !s.closed {
		s.closed = true
		s.logger.Info("headless surface closed", "presented", s.presented)
	}
	return nil
}
