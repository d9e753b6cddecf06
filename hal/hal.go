// Package hal is the boundary between the globe view and the machine it runs on: a pixel
// framebuffer, a keyboard and a display-refresh frame source.
package hal

import "errors"

var (
	// ErrNoDisplay is returned when a host has no usable framebuffer.
	ErrNoDisplay = errors.New("hal: no display")
	// ErrUnsupportedFormat is returned for framebuffers the renderer cannot draw into.
	ErrUnsupportedFormat = errors.New("hal: unsupported pixel format")
	// ErrExit is returned by App.Step to end the run loop without an error.
	ErrExit = errors.New("hal: exit requested")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp little-endian: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

func (f PixelFormat) String() string {
	if f == PixelFormatRGB565 {
		return "rgb565"
	}
	return "unknown"
}

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
)

// KeyEvent is a keyboard event. Text input arrives with Code KeyUnknown and a Rune.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// FrameSource runs callbacks on the render thread.
//
// RequestFrame schedules fn for the next display refresh and returns a non-zero id for
// CancelFrame. Post queues fn to run on the render thread before the next frame callbacks;
// it is the only method that may be called from other goroutines.
type FrameSource interface {
	RequestFrame(fn func()) uint64
	CancelFrame(id uint64)
	Post(fn func())
}

// Host is what a run loop hands to the app it drives.
type Host interface {
	Framebuffer() Framebuffer
	Keyboard() Keyboard
	Frames() FrameSource
}

// App is driven once per host tick. Step runs after input was polled and before frame
// callbacks are dispatched. Close is called once when the run loop ends.
type App interface {
	Step() error
	Close()
}

// NewAppFunc builds the app for a host. A non-nil error aborts startup.
type NewAppFunc func(h Host) (App, error)
