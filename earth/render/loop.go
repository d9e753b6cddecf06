// Package render drives the per-frame globe animation.
//
// A Loop advances the globe rotation, hands the scene to a Sink and asks its FrameSource
// for the next frame. All methods must be called on the thread that runs frame callbacks.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"globe/earth/scene"
)

const instrumentationName = "globe/earth/render"

// DefaultSpeed is the globe spin per frame in radians.
const DefaultSpeed = 0.015

var ErrNotIdle = errors.New("render: loop is not idle")

// FrameSource schedules callbacks on the display refresh. RequestFrame returns an id that can
// be passed to CancelFrame; ids are never zero.
type FrameSource interface {
	RequestFrame(fn func()) uint64
	CancelFrame(id uint64)
}

// Sink draws one frame of the scene.
type Sink interface {
	Render(g *scene.Graph) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(g *scene.Graph) error

func (f SinkFunc) Render(g *scene.Graph) error { return f(g) }

// State is the loop lifecycle state.
type State uint8

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Rotation is the globe spin angle, kept in [0, 2π).
type Rotation struct {
	Angle float64
}

// Advance returns r turned by delta and wrapped.
func (r Rotation) Advance(delta float64) Rotation {
	a := math.Mod(r.Angle+delta, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return Rotation{Angle: a}
}

type Option func(*Loop)

// WithSpeed sets the rotation per frame. Negative values are ignored.
func WithSpeed(rad float64) Option {
	return func(l *Loop) {
		if rad >= 0 {
			l.speed = rad
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithBeforeFrame registers fn to run at the start of every running frame, before the
// rotation is advanced.
func WithBeforeFrame(fn func()) Option {
	return func(l *Loop) {
		if fn != nil {
			l.before = append(l.before, fn)
		}
	}
}

// WithMeter overrides the global meter.
func WithMeter(m metric.Meter) Option {
	return func(l *Loop) { l.meter = m }
}

// Loop is the render loop state machine: Idle → Running → Stopped.
type Loop struct {
	source FrameSource
	graph  *scene.Graph
	sink   Sink

	speed  float64
	log    zerolog.Logger
	before []func()
	meter  metric.Meter
	frames metric.Int64Counter

	state   State
	rot     Rotation
	count   uint64
	pending uint64
	err     error
}

// New builds an idle loop. It fails only if the frame counter cannot be created.
func New(source FrameSource, graph *scene.Graph, sink Sink, opts ...Option) (*Loop, error) {
	if source == nil || graph == nil || sink == nil {
		return nil, errors.New("render: source, graph and sink are required")
	}
	l := &Loop{
		source: source,
		graph:  graph,
		sink:   sink,
		speed:  DefaultSpeed,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.meter == nil {
		l.meter = otel.Meter(instrumentationName)
	}

	var err error
	l.frames, err = l.meter.Int64Counter(
		"globe.frames",
		metric.WithDescription("Frames rendered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}
	return l, nil
}

func (l *Loop) State() State       { return l.state }
func (l *Loop) Rotation() Rotation { return l.rot }
func (l *Loop) Frames() uint64     { return l.count }
func (l *Loop) Speed() float64     { return l.speed }

// SetSpeed changes the rotation per frame from the next frame on. Negative values clamp to 0.
func (l *Loop) SetSpeed(rad float64) {
	l.speed = math.Max(rad, 0)
}

// Err returns the sink error that stopped the loop, if any.
func (l *Loop) Err() error { return l.err }

// Start begins the frame cycle.
func (l *Loop) Start() error {
	if l.state != Idle {
		return fmt.Errorf("%w: %s", ErrNotIdle, l.state)
	}
	l.state = Running
	l.log.Debug().Float64("speed", l.speed).Msg("render loop started")
	l.schedule()
	return nil
}

// Stop ends the cycle for good. A frame already handed to the source never runs its body.
func (l *Loop) Stop() {
	if l.state == Stopped {
		return
	}
	l.state = Stopped
	if l.pending != 0 {
		l.source.CancelFrame(l.pending)
		l.pending = 0
	}
	l.log.Debug().Uint64("frames", l.count).Msg("render loop stopped")
}

func (l *Loop) schedule() {
	var id uint64
	id = l.source.RequestFrame(func() { l.tick(id) })
	l.pending = id
}

func (l *Loop) tick(id uint64) {
	if l.state != Running || id != l.pending {
		return
	}
	l.pending = 0

	for _, fn := range l.before {
		fn()
		if l.state != Running {
			return
		}
	}

	l.rot = l.rot.Advance(l.speed)
	l.graph.SetGlobeRotation(l.rot.Angle)

	if err := l.sink.Render(l.graph); err != nil {
		l.err = err
		l.log.Error().Err(err).Msg("render failed, stopping loop")
		l.Stop()
		return
	}
	l.count++
	l.frames.Add(context.Background(), 1)

	l.schedule()
}
