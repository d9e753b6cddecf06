// Package app runs a globe view on a hal host: it builds the view from config and turns
// keyboard input into query editing and searches.
package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/earth/view"
	"globe/hal"
	"globe/internal/config"
	"globe/internal/logging"
)

const (
	ctrlU = 0x15

	// zoomStep scales the camera per Up/Down press; speedStep is the spin change per
	// Left/Right press in radians per frame.
	zoomStep  = 1.1
	speedStep = 0.005
)

type Option func(*options)

type options struct {
	resolver geocode.Resolver
	query    string
}

// WithResolver replaces the geocode.xyz client.
func WithResolver(r geocode.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithInitialQuery searches for q on the first step.
func WithInitialQuery(q string) Option {
	return func(o *options) { o.query = q }
}

// App is the hal.App driving one view.
type App struct {
	log     zerolog.Logger
	kbd     hal.Keyboard
	view    *view.View
	pending string
}

// Settings maps config onto view settings.
func Settings(cfg *config.Config) (view.Settings, error) {
	proj, err := geo.ProjectionByName(cfg.Globe.Projection)
	if err != nil {
		return view.Settings{}, err
	}
	s := view.DefaultSettings()
	s.GlobeRadius = cfg.Globe.Radius
	s.TiltDeg = cfg.Globe.TiltDeg
	s.RotationSpeed = cfg.Globe.RotationSpeed
	s.Segments = cfg.Globe.Segments
	s.Rings = cfg.Globe.Rings
	s.Projection = proj
	s.MarkerRadius = cfg.Marker.Radius
	s.MarkerFollowsGlobe = cfg.Globe.MarkerFollowsGlobe
	s.FOVDeg = cfg.Camera.FOVDeg
	s.Near = cfg.Camera.Near
	s.Far = cfg.Camera.Far
	if len(cfg.Camera.Position) == 3 {
		copy(s.CameraPosition[:], cfg.Camera.Position)
	}
	switch cfg.Camera.Projection {
	case "", "perspective":
	case "orthographic":
		s.Orthographic = true
	default:
		return view.Settings{}, fmt.Errorf("unknown camera projection %q", cfg.Camera.Projection)
	}
	s.OrthoSize = cfg.Camera.OrthoSize
	s.Wireframe = cfg.Display.Wireframe
	return s, nil
}

// NewResolver builds the geocode client from config.
func NewResolver(cfg *config.Config, log zerolog.Logger) *geocode.Client {
	return geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithTimeout(cfg.Geocode.Timeout),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithLogger(logging.Component(log, "geocode")),
	)
}

// New builds and starts the view on h.
func New(h hal.Host, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.resolver == nil {
		o.resolver = NewResolver(cfg, log)
	}

	settings, err := Settings(cfg)
	if err != nil {
		return nil, err
	}
	v, err := view.New(view.Params{
		Framebuffer: h.Framebuffer(),
		Frames:      h.Frames(),
		Resolver:    o.resolver,
		Logger:      logging.Component(log, "view"),
		Settings:    settings,
	})
	if err != nil {
		return nil, fmt.Errorf("creating view: %w", err)
	}
	if err := v.Start(); err != nil {
		v.Close()
		return nil, err
	}

	a := &App{log: log, kbd: h.Keyboard(), view: v, pending: o.query}
	if o.query != "" {
		v.HUD().SetQuery(o.query)
	}
	log.Info().Int("width", h.Framebuffer().Width()).Int("height", h.Framebuffer().Height()).Msg("globe started")
	return a, nil
}

// NewFunc adapts New to the hal run loops.
func NewFunc(cfg *config.Config, log zerolog.Logger, opts ...Option) hal.NewAppFunc {
	return func(h hal.Host) (hal.App, error) {
		return New(h, cfg, log, opts...)
	}
}

// Step handles queued input. A render failure ends the run.
func (a *App) Step() error {
	if err := a.view.Err(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if a.pending != "" {
		q := a.pending
		a.pending = ""
		a.search(q)
	}
	if a.kbd == nil {
		return nil
	}
	for {
		select {
		case ev := <-a.kbd.Events():
			if err := a.handleKey(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// handleKey edits the query. Esc on an empty search bar quits; arrow keys zoom (Up/Down)
// and change the spin speed (Left/Right).
func (a *App) handleKey(ev hal.KeyEvent) error {
	if !ev.Press {
		return nil
	}
	h := a.view.HUD()
	switch ev.Code {
	case hal.KeyEnter:
		a.search(h.Query())
		return nil
	case hal.KeyEscape:
		if _, _, shown := h.Notice(); h.Query() == "" && !shown {
			return hal.ErrExit
		}
		h.ClearQuery()
		h.ClearNotice()
		return nil
	case hal.KeyBackspace, hal.KeyDelete:
		h.Backspace()
		return nil
	case hal.KeyUp:
		a.view.Zoom(1 / zoomStep)
		return nil
	case hal.KeyDown:
		a.view.Zoom(zoomStep)
		return nil
	case hal.KeyLeft, hal.KeyRight:
		loop := a.view.Loop()
		step := speedStep
		if ev.Code == hal.KeyLeft {
			step = -step
		}
		loop.SetSpeed(loop.Speed() + step)
		return nil
	case hal.KeyUnknown:
	default:
		return nil
	}
	switch {
	case ev.Rune == ctrlU:
		h.ClearQuery()
	case ev.Rune == '\r' || ev.Rune == '\n':
		a.search(h.Query())
	case ev.Rune == '\b':
		h.Backspace()
	case ev.Rune != 0:
		h.Insert(ev.Rune)
	}
	return nil
}

func (a *App) search(q string) {
	if err := a.view.Search(q); err != nil {
		a.log.Warn().Err(err).Msg("search not started")
	}
}

// View exposes the running view.
func (a *App) View() *view.View { return a.view }

func (a *App) Close() { a.view.Close() }
