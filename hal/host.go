package hal

import "fmt"

// DisplayConfig sizes the host framebuffer.
type DisplayConfig struct {
	Width  int
	Height int
}

// WindowConfig controls the desktop window.
type WindowConfig struct {
	Display DisplayConfig
	Title   string
	Scale   int
	// TPS is the update rate. Zero ties updates to the display refresh.
	TPS int
}

// Device is the desktop host: an in-memory RGB565 framebuffer, a keyboard fed by the
// window (or by Inject) and a frame queue.
type Device struct {
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	frames *FrameQueue
}

// New returns a host device.
func New(cfg DisplayConfig) (*Device, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrNoDisplay, cfg.Width, cfg.Height)
	}
	return &Device{
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		kbd:    newHostKeyboard(),
		frames: NewFrameQueue(),
	}, nil
}

func (d *Device) Framebuffer() Framebuffer { return d.fb }
func (d *Device) Keyboard() Keyboard       { return d.kbd }
func (d *Device) Frames() FrameSource      { return d.frames }

// Inject queues a key event as if it was typed. It reports false if the queue is full.
func (d *Device) Inject(ev KeyEvent) bool { return d.kbd.push(ev) }

// Snapshot copies the current framebuffer contents into dst.
func (d *Device) Snapshot(dst []byte) int { return d.fb.snapshotRGB565(dst) }

// Presents returns how many frames were presented.
func (d *Device) Presents() uint64 { return d.fb.presentCount() }

// tick runs one host iteration: the app step, then frame dispatch.
func (d *Device) tick(app App) error {
	if err := app.Step(); err != nil {
		return err
	}
	d.frames.Dispatch()
	return nil
}
