// Package view assembles the globe scene and runs it on a host.
//
// A View owns the scene graph. Its marker manager and render loop only borrow it, and every
// mutation happens on the host render thread: frame callbacks and tasks posted through the
// host frame source. Search is the one operation that leaves that thread; its result is
// posted back and dropped if the view was closed in the meantime.
package view

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/earth/hud"
	"globe/earth/marker"
	"globe/earth/render"
	"globe/earth/scene"
	"globe/earth/softgl"
	"globe/hal"
)

const instrumentationName = "globe/earth/view"

// Notices shown on the HUD.
const (
	NoticeSearching = "Searching..."
	NoticeNotFound  = "Location not found."
	NoticeNetwork   = "Unable to fetch location data."
	NoticeInvalid   = "The service returned an invalid location."
)

var ErrClosed = errors.New("view: closed")

// Settings is the scene setup.
type Settings struct {
	GlobeRadius   float64
	TiltDeg       float64
	RotationSpeed float64
	Segments      int
	Rings         int
	Projection    geo.Projection

	MarkerRadius       float64
	MarkerFollowsGlobe bool

	FOVDeg         float64
	Near           float64
	Far            float64
	CameraPosition [3]float64
	// Orthographic switches the camera to a parallel projection OrthoSize units high
	// (half-height).
	Orthographic bool
	OrthoSize    float64
	Wireframe    bool

	// NoticeFrames is how long HUD notices stay up; zero keeps the HUD default.
	NoticeFrames int
}

// DefaultSettings matches the stock config.
func DefaultSettings() Settings {
	return Settings{
		GlobeRadius:    marker.EarthRadius,
		TiltDeg:        23.5,
		RotationSpeed:  render.DefaultSpeed,
		Segments:       32,
		Rings:          16,
		Projection:     geo.Project,
		MarkerRadius:   0.1,
		FOVDeg:         75,
		Near:           0.1,
		Far:            1000,
		CameraPosition: [3]float64{0, 1, 8},
		OrthoSize:      2.5,
	}
}

// Params are the collaborators of a View.
type Params struct {
	Framebuffer hal.Framebuffer
	Frames      hal.FrameSource
	Resolver    geocode.Resolver
	Logger      zerolog.Logger
	// Meter defaults to the global meter provider.
	Meter    metric.Meter
	Settings Settings
}

// View is one globe on one framebuffer.
type View struct {
	log      zerolog.Logger
	fb       hal.Framebuffer
	frames   hal.FrameSource
	resolver geocode.Resolver

	graph    *scene.Graph
	markers  *marker.Manager
	loop     *render.Loop
	renderer *softgl.Renderer
	target   *softgl.RGB565Target
	hud      *hud.HUD

	searches metric.Int64Counter
	radius   float64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	issued  uint64
	applied uint64
}

// New builds the scene on p.Framebuffer. Framebuffer problems are setup errors.
func New(p Params) (*View, error) {
	if p.Framebuffer == nil {
		return nil, hal.ErrNoDisplay
	}
	if f := p.Framebuffer.Format(); f != hal.PixelFormatRGB565 {
		return nil, fmt.Errorf("%w: %s", hal.ErrUnsupportedFormat, f)
	}
	w, h := p.Framebuffer.Width(), p.Framebuffer.Height()
	buf := p.Framebuffer.Buffer()
	stride := p.Framebuffer.StrideBytes()
	if w <= 0 || h <= 0 || stride < w*2 || len(buf) < stride*(h-1)+w*2 {
		return nil, fmt.Errorf("%w: framebuffer %dx%d stride %d len %d", hal.ErrNoDisplay, w, h, stride, len(buf))
	}
	if p.Frames == nil {
		return nil, errors.New("view: frame source is required")
	}
	s := p.Settings
	if s.GlobeRadius <= 0 || s.MarkerRadius <= 0 {
		return nil, fmt.Errorf("view: globe radius %v and marker radius %v must be positive", s.GlobeRadius, s.MarkerRadius)
	}
	if s.Projection == nil {
		s.Projection = geo.Project
	}

	v := &View{
		log:      p.Logger,
		fb:       p.Framebuffer,
		frames:   p.Frames,
		resolver: p.Resolver,
		graph:    scene.New(scene.DefaultCapacity),
		renderer: softgl.NewRenderer(w, h, true),
		target:   &softgl.RGB565Target{Buf: buf, Stride: stride, W: w, H: h},
		hud:      hud.New(),
		radius:   s.GlobeRadius,
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.renderer.ClearColor = softgl.Hex(0x000000)
	if s.Wireframe {
		v.renderer.Mode = softgl.ModeWireframe
	}
	if s.NoticeFrames > 0 {
		v.hud.SetNoticeFrames(s.NoticeFrames)
	}

	v.graph.Camera = softgl.Camera{
		Projection: softgl.ProjectPerspective,
		Position:   softgl.V3d(s.CameraPosition[0], s.CameraPosition[1], s.CameraPosition[2]),
		Up:         softgl.V3(0, 1, 0),
		FOVYRad:    float32(s.FOVDeg * math.Pi / 180),
		Near:       float32(s.Near),
		Far:        float32(s.Far),
	}
	if s.Orthographic {
		v.graph.Camera.Projection = softgl.ProjectOrtho
		v.graph.Camera.OrthoSize = float32(s.OrthoSize)
		if s.OrthoSize <= 0 {
			v.graph.Camera.OrthoSize = float32(s.GlobeRadius * 1.25)
		}
	}
	v.graph.Light = softgl.Light{
		Ambient:   0.25,
		Dir:       softgl.DirectionalFrom(softgl.V3(5, 10, 10)),
		DirAmount: 1,
	}

	if _, err := v.graph.AddGlobe(GlobeMesh(s.GlobeRadius, s.Segments, s.Rings), s.TiltDeg*math.Pi/180); err != nil {
		return nil, fmt.Errorf("adding globe: %w", err)
	}

	mesh := softgl.UVSphere(float32(s.MarkerRadius), 16, 16)
	mesh.Material = marker.DefaultMesh().Material
	v.markers = marker.New(v.graph,
		marker.WithRadius(s.GlobeRadius),
		marker.WithProjection(s.Projection),
		marker.WithFollowGlobe(s.MarkerFollowsGlobe),
		marker.WithMesh(mesh),
	)

	meter := p.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var err error
	v.searches, err = meter.Int64Counter(
		"globe.searches",
		metric.WithDescription("Location searches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating search counter: %w", err)
	}

	v.loop, err = render.New(v.frames, v.graph, v,
		render.WithSpeed(s.RotationSpeed),
		render.WithLogger(v.log),
		render.WithBeforeFrame(v.hud.Tick),
		render.WithMeter(meter),
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Start begins rendering.
func (v *View) Start() error {
	if v.closed {
		return ErrClosed
	}
	return v.loop.Start()
}

// Render draws one frame: the scene, then the HUD on top.
func (v *View) Render(g *scene.Graph) error {
	v.draw(v.target, g)
	if err := v.fb.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Draw renders the current scene and HUD into t without presenting, for snapshots.
// A depth buffer sized for t is allocated per call.
func (v *View) Draw(t softgl.Target) {
	w, h := t.Size()
	r := softgl.NewRenderer(w, h, true)
	r.ClearColor = v.renderer.ClearColor
	r.Mode = v.renderer.Mode
	r.Render(t, v.graph.Camera, v.graph.Light, v.graph)
	v.hud.Draw(t)
}

func (v *View) draw(t softgl.Target, g *scene.Graph) {
	v.renderer.Render(t, g.Camera, g.Light, g)
	v.hud.Draw(t)
}

// Zoom scales the camera distance (perspective) or view height (orthographic) by factor;
// values below 1 zoom in. The camera never enters the globe or passes the far plane.
func (v *View) Zoom(factor float64) {
	if factor <= 0 || v.closed {
		return
	}
	cam := &v.graph.Camera
	if cam.Projection == softgl.ProjectOrtho {
		size := float64(cam.OrthoSize) * factor
		size = math.Max(v.radius*0.25, math.Min(size, v.radius*10))
		cam.OrthoSize = float32(size)
		return
	}
	dist := float64(softgl.Length(cam.Position.Sub(cam.Target)))
	if dist == 0 {
		return
	}
	next := math.Max(v.radius*1.25, math.Min(dist*factor, float64(cam.Far)/2))
	dir := cam.Position.Sub(cam.Target).Scale(float32(next / dist))
	cam.Position = cam.Target.Add(dir)
}

// Search resolves query in the background and moves the marker when the answer arrives.
// A newer search supersedes older ones still in flight.
func (v *View) Search(query string) error {
	if v.closed {
		return ErrClosed
	}
	if v.resolver == nil {
		return errors.New("view: no resolver configured")
	}
	query = strings.TrimSpace(query)
	v.issued++
	seq := v.issued
	v.hud.SetNotice(hud.LevelInfo, NoticeSearching)
	v.log.Debug().Str("query", query).Uint64("seq", seq).Msg("search started")

	ctx := v.ctx
	go func() {
		c, err := v.resolver.Resolve(ctx, query)
		v.frames.Post(func() { v.finishSearch(seq, query, c, err) })
	}()
	return nil
}

func (v *View) finishSearch(seq uint64, query string, c geo.Coordinate, err error) {
	log := v.log.With().Str("query", query).Uint64("seq", seq).Logger()
	if v.closed {
		log.Debug().Msg("search result after close discarded")
		v.count("discarded")
		return
	}
	if seq < v.applied {
		log.Debug().Msg("stale search result discarded")
		v.count("stale")
		return
	}
	v.applied = seq

	if err != nil {
		outcome, notice := classify(err)
		log.Warn().Err(err).Str("outcome", outcome).Msg("search failed")
		v.count(outcome)
		v.hud.SetNotice(hud.LevelError, notice)
		return
	}

	if err := v.SetLocation(c); err != nil {
		log.Warn().Err(err).Msg("search result rejected")
		v.count("invalid")
		v.hud.SetNotice(hud.LevelError, NoticeInvalid)
		return
	}
	v.hud.ClearNotice()
	log.Info().Float64("lat", c.Lat).Float64("lon", c.Lon).Msg("location found")
	v.count("found")
}

func classify(err error) (outcome, notice string) {
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return "not_found", NoticeNotFound
	case errors.Is(err, geocode.ErrInvalidCoordinate):
		return "invalid", NoticeInvalid
	default:
		return "network", NoticeNetwork
	}
}

func (v *View) count(outcome string) {
	v.searches.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// SetLocation moves the marker to c right away. It must run on the render thread.
// Invalid coordinates are rejected before they reach the scene.
func (v *View) SetLocation(c geo.Coordinate) error {
	if v.closed {
		return ErrClosed
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", geocode.ErrInvalidCoordinate, c)
	}
	mk, err := v.markers.SetLocation(c)
	if err != nil {
		return err
	}
	v.hud.SetStatus(c.String())
	v.log.Debug().Stringer("position", mk.Position).Msg("marker placed")
	return nil
}

// Close stops rendering, removes the marker and cancels searches in flight. It is safe to
// call more than once.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
	v.loop.Stop()
	v.markers.Clear()
	v.log.Debug().Uint64("frames", v.loop.Frames()).Msg("view closed")
}

func (v *View) Closed() bool        { return v.closed }
func (v *View) Graph() *scene.Graph { return v.graph }
func (v *View) Loop() *render.Loop  { return v.loop }
func (v *View) HUD() *hud.HUD       { return v.hud }

// Marker returns the live marker, if any.
func (v *View) Marker() (marker.Marker, bool) { return v.markers.Current() }

// Err returns the error that stopped rendering, if any.
func (v *View) Err() error { return v.loop.Err() }
