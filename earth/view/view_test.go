package view

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/earth/render"
	"globe/earth/softgl"
	"globe/hal"
)

var (
	newYork = geo.Coordinate{Lat: 40.7128, Lon: -74.0060}
	london  = geo.Coordinate{Lat: 51.5074, Lon: -0.1278}
)

type answer struct {
	c    geo.Coordinate
	err  error
	gate chan struct{}
}

// fakeResolver answers from a table. Queries with a gate block until it is closed or the
// context is cancelled.
type fakeResolver struct {
	mu      sync.Mutex
	answers map[string]answer
	ctxErrs []error
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (geo.Coordinate, error) {
	f.mu.Lock()
	a, ok := f.answers[query]
	f.mu.Unlock()
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("%w: %q", geocode.ErrNotFound, query)
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.ctxErrs = append(f.ctxErrs, ctx.Err())
			f.mu.Unlock()
			return geo.Coordinate{}, fmt.Errorf("%w: %w", geocode.ErrNetwork, ctx.Err())
		}
	}
	return a.c, a.err
}

type fixture struct {
	dev    *hal.Device
	frames *hal.FrameQueue
	res    *fakeResolver
	view   *View
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev, err := hal.New(hal.DisplayConfig{Width: 96, Height: 96})
	require.NoError(t, err)

	f := &fixture{
		dev:    dev,
		frames: hal.NewFrameQueue(),
		res: &fakeResolver{answers: map[string]answer{
			"New York": {c: newYork},
			"London":   {c: london},
			"offline":  {err: fmt.Errorf("%w: connection refused", geocode.ErrNetwork)},
			"garbage":  {err: fmt.Errorf("%w: latt", geocode.ErrInvalidCoordinate)},
		}},
	}
	f.view, err = New(Params{
		Framebuffer: dev.Framebuffer(),
		Frames:      f.frames,
		Resolver:    f.res,
		Logger:      zerolog.Nop(),
		Meter:       noop.NewMeterProvider().Meter("test"),
		Settings:    DefaultSettings(),
	})
	require.NoError(t, err)
	t.Cleanup(f.view.Close)
	return f
}

// settle waits for a posted search result and applies it.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, tasks := f.frames.Pending()
		return tasks > 0
	}, 2*time.Second, time.Millisecond)
	f.frames.Dispatch()
}

type badFormat struct{ hal.Framebuffer }

func (badFormat) Format() hal.PixelFormat { return 0 }

func TestNewSetupErrors(t *testing.T) {
	_, err := New(Params{Frames: hal.NewFrameQueue(), Settings: DefaultSettings()})
	assert.ErrorIs(t, err, hal.ErrNoDisplay)

	dev, err := hal.New(hal.DisplayConfig{Width: 8, Height: 8})
	require.NoError(t, err)
	_, err = New(Params{Framebuffer: badFormat{dev.Framebuffer()}, Frames: hal.NewFrameQueue(), Settings: DefaultSettings()})
	assert.ErrorIs(t, err, hal.ErrUnsupportedFormat)

	_, err = New(Params{Framebuffer: dev.Framebuffer(), Frames: hal.NewFrameQueue()})
	assert.Error(t, err)
}

func TestViewRendersFrames(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.view.Start())
	assert.ErrorIs(t, f.view.Start(), render.ErrNotIdle)

	for i := 0; i < 3; i++ {
		require.Equal(t, 1, f.frames.Dispatch())
	}
	assert.Equal(t, uint64(3), f.view.Loop().Frames())
	assert.Equal(t, uint64(3), f.dev.Presents())
	assert.InDelta(t, 3*render.DefaultSpeed, f.view.Graph().GlobeRotation(), 1e-12)

	snap := make([]byte, 96*96*2)
	f.dev.Snapshot(snap)
	off := 48*96*2 + 48*2
	assert.NotEqual(t, []byte{0, 0}, snap[off:off+2], "globe should cover the centre")
}

func TestSearchPlacesMarker(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.view.Search("  New York "))
	text, _, ok := f.view.HUD().Notice()
	require.True(t, ok)
	assert.Equal(t, NoticeSearching, text)

	f.settle(t)

	mk, ok := f.view.Marker()
	require.True(t, ok)
	assert.Equal(t, geo.Project(newYork, 2), mk.Position)
	assert.InDelta(t, 2, mk.Position.Len(), 1e-9)

	pos, ok := f.view.Graph().Position(mk.Handle)
	require.True(t, ok)
	assert.Equal(t, mk.Position, pos)

	_, _, ok = f.view.HUD().Notice()
	assert.False(t, ok)
	assert.Equal(t, newYork.String(), f.view.HUD().Status())
}

func TestTwoSearchesLeaveOneMarker(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.view.Search("New York"))
	f.settle(t)
	first, ok := f.view.Marker()
	require.True(t, ok)

	require.NoError(t, f.view.Search("London"))
	f.settle(t)
	second, ok := f.view.Marker()
	require.True(t, ok)

	g := f.view.Graph()
	assert.Equal(t, 1, g.MarkerCount())
	assert.False(t, g.Contains(first.Handle))
	pos, ok := g.Position(second.Handle)
	require.True(t, ok)
	assert.Equal(t, geo.Project(london, 2), pos)
}

func TestSearchFailuresLeaveSceneAlone(t *testing.T) {
	cases := []struct {
		query  string
		notice string
	}{
		{"Atlantis", NoticeNotFound},
		{"offline", NoticeNetwork},
		{"garbage", NoticeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			f := newFixture(t)
			before := f.view.Graph().Len()

			require.NoError(t, f.view.Search(tc.query))
			f.settle(t)

			assert.Equal(t, before, f.view.Graph().Len())
			assert.Zero(t, f.view.Graph().MarkerCount())
			text, lvl, ok := f.view.HUD().Notice()
			require.True(t, ok)
			assert.Equal(t, tc.notice, text)
			assert.NotZero(t, lvl)
		})
	}
}

func TestFailureKeepsPreviousMarker(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.view.Search("New York"))
	f.settle(t)
	mk, _ := f.view.Marker()

	require.NoError(t, f.view.Search("Atlantis"))
	f.settle(t)

	after, ok := f.view.Marker()
	require.True(t, ok)
	assert.Equal(t, mk, after)
	assert.True(t, f.view.Graph().Contains(mk.Handle))
}

func TestResultAfterCloseIsDiscarded(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.res.answers["slow"] = answer{c: london, gate: gate}

	require.NoError(t, f.view.Search("slow"))
	f.view.Close()
	f.view.Close()
	assert.ErrorIs(t, f.view.Search("London"), ErrClosed)

	f.settle(t)
	close(gate)

	assert.Zero(t, f.view.Graph().MarkerCount())
	_, ok := f.view.Marker()
	assert.False(t, ok)

	f.res.mu.Lock()
	defer f.res.mu.Unlock()
	require.Len(t, f.res.ctxErrs, 1)
	assert.ErrorIs(t, f.res.ctxErrs[0], context.Canceled)
}

func TestCloseRemovesMarkerAndStopsFrames(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.view.Start())
	require.NoError(t, f.view.SetLocation(newYork))
	f.frames.Dispatch()
	presents := f.dev.Presents()
	angle := f.view.Graph().GlobeRotation()

	f.view.Close()
	for i := 0; i < 5; i++ {
		f.frames.Dispatch()
	}

	assert.Equal(t, presents, f.dev.Presents())
	assert.Equal(t, angle, f.view.Graph().GlobeRotation())
	assert.Zero(t, f.view.Graph().MarkerCount())
	assert.Equal(t, render.Stopped, f.view.Loop().State())
	assert.ErrorIs(t, f.view.Start(), ErrClosed)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.res.answers["slow"] = answer{c: newYork, gate: gate}

	require.NoError(t, f.view.Search("slow"))
	require.NoError(t, f.view.Search("London"))
	f.settle(t)

	mk, ok := f.view.Marker()
	require.True(t, ok)
	assert.Equal(t, london, mk.Coordinate)

	close(gate)
	f.settle(t)

	mk, ok = f.view.Marker()
	require.True(t, ok)
	assert.Equal(t, london, mk.Coordinate)
	assert.Equal(t, 1, f.view.Graph().MarkerCount())
}

func TestSetLocationRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	err := f.view.SetLocation(geo.Coordinate{Lat: math.NaN(), Lon: 0})
	assert.ErrorIs(t, err, geocode.ErrInvalidCoordinate)
	assert.Zero(t, f.view.Graph().MarkerCount())
}

func TestTextureProjectionSetting(t *testing.T) {
	dev, err := hal.New(hal.DisplayConfig{Width: 32, Height: 32})
	require.NoError(t, err)
	s := DefaultSettings()
	s.Projection = geo.ProjectTextureAligned
	s.MarkerFollowsGlobe = true

	v, err := New(Params{Framebuffer: dev.Framebuffer(), Frames: hal.NewFrameQueue(), Logger: zerolog.Nop(), Settings: s})
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.SetLocation(london))
	mk, _ := v.Marker()
	assert.Equal(t, geo.ProjectTextureAligned(london, 2), mk.Position)
}

func TestGlobeColors(t *testing.T) {
	assert.Equal(t, colIce, globeColor(softgl.V3(0, 1, 0)))
	assert.Equal(t, colIce, globeColor(softgl.V3(0.1, -1, 0)))

	c := globeColor(softgl.V3d(math.Cos(0.26), math.Sin(0.26), 0.3))
	assert.Contains(t, []softgl.Color{colOceanDeep, colOceanShallow, colGrid}, c)
}

func TestDrawSnapshotShowsMarker(t *testing.T) {
	f := newFixture(t)
	img := softgl.NewImageTarget(96, 96)

	f.view.Draw(img)
	plain := append([]byte(nil), img.Img.Pix...)
	assert.Zero(t, f.dev.Presents())

	require.NoError(t, f.view.SetLocation(geo.Coordinate{Lat: 0, Lon: 90}))
	f.view.Draw(img)
	assert.NotEqual(t, plain, img.Img.Pix)
}

func TestZoomStaysOutsideGlobe(t *testing.T) {
	f := newFixture(t)
	cam := &f.view.Graph().Camera

	for i := 0; i < 50; i++ {
		f.view.Zoom(0.5)
	}
	assert.InDelta(t, 2*1.25, softgl.Length(cam.Position), 1e-4)

	for i := 0; i < 50; i++ {
		f.view.Zoom(4)
	}
	assert.InDelta(t, 500, softgl.Length(cam.Position), 1e-2)

	f.view.Zoom(0)
	assert.InDelta(t, 500, softgl.Length(cam.Position), 1e-2)
}

func TestOrthographicWireframeSettings(t *testing.T) {
	dev, err := hal.New(hal.DisplayConfig{Width: 64, Height: 64})
	require.NoError(t, err)
	s := DefaultSettings()
	s.Orthographic = true
	s.OrthoSize = 3
	s.Wireframe = true

	v, err := New(Params{Framebuffer: dev.Framebuffer(), Frames: hal.NewFrameQueue(), Logger: zerolog.Nop(), Settings: s})
	require.NoError(t, err)
	defer v.Close()

	cam := &v.Graph().Camera
	assert.Equal(t, softgl.ProjectOrtho, cam.Projection)
	assert.InDelta(t, 3, cam.OrthoSize, 1e-6)

	v.Zoom(0.5)
	assert.InDelta(t, 1.5, cam.OrthoSize, 1e-6)
	v.Zoom(0.01)
	assert.InDelta(t, 0.5, cam.OrthoSize, 1e-6)

	solid := softgl.NewImageTarget(64, 64)
	wire := softgl.NewImageTarget(64, 64)
	v.Draw(wire)
	s.Wireframe = false
	sv, err := New(Params{Framebuffer: dev.Framebuffer(), Frames: hal.NewFrameQueue(), Logger: zerolog.Nop(), Settings: s})
	require.NoError(t, err)
	defer sv.Close()
	sv.Zoom(0.5)
	sv.Zoom(0.01)
	sv.Draw(solid)
	assert.NotEqual(t, solid.Img.Pix, wire.Img.Pix)
}

func TestDenseGlobeMeshIsClamped(t *testing.T) {
	dev, err := hal.New(hal.DisplayConfig{Width: 16, Height: 16})
	require.NoError(t, err)
	s := DefaultSettings()
	s.Segments, s.Rings = 1000, 1000

	v, err := New(Params{Framebuffer: dev.Framebuffer(), Frames: hal.NewFrameQueue(), Logger: zerolog.Nop(), Settings: s})
	require.NoError(t, err)
	defer v.Close()

	h, ok := v.Graph().Globe()
	require.True(t, ok)
	m, ok := v.Graph().Mesh(h)
	require.True(t, ok)
	assert.LessOrEqual(t, len(m.Vertices), softgl.MaxVertices)
	for _, idx := range m.Indices {
		require.Less(t, int(idx), len(m.Vertices))
	}
}
