package viewer

import (
	"context"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"

	"swarm-viewer/internal/visualization"
)

// window adapts a Session to ebiten.Game. Ebiten paces Update at the session's
// tick rate and presents the surface canvas in Draw.
type window struct {
	ctx     context.Context
	session *Session
	surface *visualization.WindowSurface
}

func (w *window) Update() error {
	if w.session.Tick(w.ctx) != Running {
		return ebiten.Termination
	}
	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	w.surface.Draw(screen)
}

func (w *window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.surface.Layout(outsideWidth, outsideHeight)
}

// RunWindow runs the ebiten game loop on the calling goroutine, which must be the
// main goroutine, until the session terminates. The session is shut down before
// RunWindow returns, also when ebiten itself fails.
func RunWindow(ctx context.Context, session *Session, surface *visualization.WindowSurface) error {
	ebiten.SetTPS(session.opts.TPS)

	err := ebiten.RunGame(&window{ctx: ctx, session: session, surface: surface})
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	if err != nil {
		session.logger.Error("window loop failed", "error", err)
		session.requestShutdown("window failed")
	}
	return errors.Join(err, session.Shutdown())
}
