package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/earth/softgl"
	"globe/earth/view"
	"globe/hal"
	"globe/internal/config"
)

var paris = geo.Coordinate{Lat: 48.8566, Lon: 2.3522}

type stubResolver struct {
	mu      sync.Mutex
	queries []string
}

func (s *stubResolver) Resolve(_ context.Context, q string) (geo.Coordinate, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if q == "Paris" {
		return paris, nil
	}
	return geo.Coordinate{}, fmt.Errorf("%w: %q", geocode.ErrNotFound, q)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Decode(config.New(""))
	require.NoError(t, err)
	cfg.Display.Width, cfg.Display.Height = 64, 64
	return cfg
}

func newTestApp(t *testing.T, opts ...Option) (*App, *hal.Device, *stubResolver) {
	t.Helper()
	dev, err := hal.New(hal.DisplayConfig{Width: 64, Height: 64})
	require.NoError(t, err)
	res := &stubResolver{}
	a, err := New(dev, testConfig(t), zerolog.Nop(), append([]Option{WithResolver(res)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, dev, res
}

// step runs one host tick and waits for a search result when one is expected.
func step(t *testing.T, a *App, dev *hal.Device, waitTask bool) {
	t.Helper()
	require.NoError(t, a.Step())
	q := dev.Frames().(*hal.FrameQueue)
	if waitTask {
		require.Eventually(t, func() bool {
			_, tasks := q.Pending()
			return tasks > 0
		}, 2*time.Second, time.Millisecond)
	}
	q.Dispatch()
}

func typeText(dev *hal.Device, s string) {
	for _, r := range s {
		dev.Inject(hal.KeyEvent{Press: true, Rune: r})
	}
}

func TestTypingAndEnterPlacesMarker(t *testing.T) {
	a, dev, res := newTestApp(t)

	typeText(dev, "Pariz")
	dev.Inject(hal.KeyEvent{Code: hal.KeyBackspace, Press: true})
	typeText(dev, "s")
	step(t, a, dev, false)
	assert.Equal(t, "Paris", a.View().HUD().Query())

	dev.Inject(hal.KeyEvent{Code: hal.KeyEnter, Press: true})
	step(t, a, dev, true)

	mk, ok := a.View().Marker()
	require.True(t, ok)
	assert.Equal(t, paris, mk.Coordinate)
	assert.Equal(t, []string{"Paris"}, res.queries)
	assert.NotZero(t, dev.Presents())
}

func TestReleaseEventsAreIgnored(t *testing.T) {
	a, dev, _ := newTestApp(t)
	dev.Inject(hal.KeyEvent{Press: false, Rune: 'x'})
	dev.Inject(hal.KeyEvent{Code: hal.KeyEnter})
	step(t, a, dev, false)
	assert.Empty(t, a.View().HUD().Query())
	_, _, ok := a.View().HUD().Notice()
	assert.False(t, ok)
}

func TestEscapeAndCtrlUClear(t *testing.T) {
	a, dev, _ := newTestApp(t)

	typeText(dev, "Rome")
	dev.Inject(hal.KeyEvent{Press: true, Rune: ctrlU})
	step(t, a, dev, false)
	assert.Empty(t, a.View().HUD().Query())

	typeText(dev, "Nowhere\r")
	step(t, a, dev, true)
	text, _, ok := a.View().HUD().Notice()
	require.True(t, ok)
	assert.Equal(t, view.NoticeNotFound, text)

	dev.Inject(hal.KeyEvent{Code: hal.KeyEscape, Press: true})
	step(t, a, dev, false)
	assert.Empty(t, a.View().HUD().Query())
	_, _, ok = a.View().HUD().Notice()
	assert.False(t, ok)
	assert.Zero(t, a.View().Graph().MarkerCount())
}

func TestEscapeOnEmptyBarExits(t *testing.T) {
	a, dev, _ := newTestApp(t)
	dev.Inject(hal.KeyEvent{Code: hal.KeyEscape, Press: true})
	assert.ErrorIs(t, a.Step(), hal.ErrExit)
}

func TestArrowKeysSteerTheView(t *testing.T) {
	a, dev, _ := newTestApp(t)
	cam := &a.View().Graph().Camera
	dist := func() float64 { return float64(softgl.Length(cam.Position)) }
	start := dist()

	dev.Inject(hal.KeyEvent{Code: hal.KeyUp, Press: true})
	step(t, a, dev, false)
	assert.InDelta(t, start/zoomStep, dist(), 1e-4)

	dev.Inject(hal.KeyEvent{Code: hal.KeyDown, Press: true})
	dev.Inject(hal.KeyEvent{Code: hal.KeyDown, Press: true})
	step(t, a, dev, false)
	assert.InDelta(t, start*zoomStep, dist(), 1e-4)

	speed := a.View().Loop().Speed()
	dev.Inject(hal.KeyEvent{Code: hal.KeyRight, Press: true})
	step(t, a, dev, false)
	assert.InDelta(t, speed+speedStep, a.View().Loop().Speed(), 1e-12)

	for i := 0; i < 10; i++ {
		dev.Inject(hal.KeyEvent{Code: hal.KeyLeft, Press: true})
	}
	step(t, a, dev, false)
	assert.Zero(t, a.View().Loop().Speed())
	assert.Empty(t, a.View().HUD().Query())
}

func TestInitialQuery(t *testing.T) {
	a, dev, res := newTestApp(t, WithInitialQuery("Paris"))
	assert.Equal(t, "Paris", a.View().HUD().Query())

	step(t, a, dev, true)
	_, ok := a.View().Marker()
	assert.True(t, ok)

	step(t, a, dev, false)
	assert.Len(t, res.queries, 1)
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Globe.Projection = "texture"
	cfg.Camera.Position = []float64{1, 2, 3}

	s, err := Settings(cfg)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, s.CameraPosition)
	assert.Equal(t, geo.ProjectTextureAligned(paris, 2), s.Projection(paris, 2))
	assert.Equal(t, 23.5, s.TiltDeg)

	assert.False(t, s.Orthographic)
	assert.False(t, s.Wireframe)

	cfg.Camera.Projection = "orthographic"
	cfg.Camera.OrthoSize = 3
	cfg.Display.Wireframe = true
	s, err = Settings(cfg)
	require.NoError(t, err)
	assert.True(t, s.Orthographic)
	assert.Equal(t, 3.0, s.OrthoSize)
	assert.True(t, s.Wireframe)

	cfg.Camera.Projection = "fisheye"
	_, err = Settings(cfg)
	assert.Error(t, err)

	cfg.Camera.Projection = "perspective"
	cfg.Globe.Projection = "mercator"
	_, err = Settings(cfg)
	assert.Error(t, err)
}

func TestRunHeadless(t *testing.T) {
	cfg := testConfig(t)
	res := &stubResolver{}
	var got *App
	newApp := func(h hal.Host) (hal.App, error) {
		a, err := New(h, cfg, zerolog.Nop(), WithResolver(res))
		got = a
		return a, err
	}

	err := hal.RunHeadless(context.Background(), hal.HeadlessConfig{
		Display: hal.DisplayConfig{Width: 64, Height: 64},
		Hz:      1000,
		Ticks:   4,
	}, newApp)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.View().Closed())
	assert.Equal(t, uint64(4), got.View().Loop().Frames())
}

func TestNewRejectsBadInput(t *testing.T) {
	dev, err := hal.New(hal.DisplayConfig{Width: 8, Height: 8})
	require.NoError(t, err)

	_, err = New(dev, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Marker.Radius = 0
	_, err = New(dev, cfg, zerolog.Nop(), WithResolver(&stubResolver{}))
	assert.Error(t, err)
}

var _ hal.App = (*App)(nil)
