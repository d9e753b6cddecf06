//go:build cgo

package hal

import (
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the framebuffer and forwards keyboard input.
// It blocks until the window closes or the app returns ErrExit.
func RunWindow(cfg WindowConfig, newApp NewAppFunc) error {
	d, err := New(cfg.Display)
	if err != nil {
		return err
	}
	app, err := newApp(d)
	if err != nil {
		return err
	}
	defer app.Close()

	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}
	g := &hostGame{d: d, app: app}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(d.fb.width*scale, d.fb.height*scale)
	ebiten.SetVsyncEnabled(true)
	if cfg.TPS > 0 {
		ebiten.SetTPS(cfg.TPS)
	} else {
		ebiten.SetTPS(ebiten.SyncWithFPS)
	}

	err = ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

type hostGame struct {
	d       *Device
	app     App
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
}

func (g *hostGame) Update() error {
	g.d.kbd.poll()
	if err := g.d.tick(g.app); err != nil {
		if errors.Is(err, ErrExit) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.d.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)
	expandRGB565(g.img.Pix, g.scratch)

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.d.fb.width, g.d.fb.height
}
