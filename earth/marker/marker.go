// Package marker keeps the single location marker of a globe scene.
package marker

import (
	"errors"
	"fmt"

	"globe/earth/geo"
	"globe/earth/scene"
	"globe/earth/softgl"
)

// EarthRadius is the radius of the globe mesh in scene units.
const EarthRadius = 2.0

// ErrSceneFull is returned when the graph has no room for the new marker.
var ErrSceneFull = errors.New("marker: scene is full")

// Marker is the live marker.
type Marker struct {
	Coordinate geo.Coordinate
	Position   geo.Point
	Handle     scene.Handle
}

// DefaultMesh is a small unlit red sphere.
func DefaultMesh() softgl.Mesh {
	m := softgl.UVSphere(0.1, 16, 16)
	m.Material = softgl.Material{Color: softgl.Hex(0xFF0000), Unlit: true}
	return m
}

type Option func(*Manager)

// WithRadius sets the sphere radius markers are projected onto.
func WithRadius(r float64) Option {
	return func(m *Manager) {
		if r > 0 {
			m.radius = r
		}
	}
}

func WithProjection(p geo.Projection) Option {
	return func(m *Manager) {
		if p != nil {
			m.project = p
		}
	}
}

// WithMesh replaces the marker geometry. Vertex data is shared between markers.
func WithMesh(mesh softgl.Mesh) Option {
	return func(m *Manager) { m.mesh = mesh }
}

// WithFollowGlobe places markers in the rotating globe frame instead of world space.
func WithFollowGlobe(follow bool) Option {
	return func(m *Manager) { m.follow = follow }
}

// Manager owns the marker's slot in a scene graph. The graph itself is owned by the caller.
type Manager struct {
	graph   *scene.Graph
	radius  float64
	project geo.Projection
	mesh    softgl.Mesh
	follow  bool

	current Marker
	live    bool
}

func New(graph *scene.Graph, opts ...Option) *Manager {
	m := &Manager{
		graph:   graph,
		radius:  EarthRadius,
		project: geo.Project,
		mesh:    DefaultMesh(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetLocation moves the marker to c. Any previous marker is removed before the new one is
// inserted, so the graph never holds more than one.
//
// Coordinates are not validated here.
func (m *Manager) SetLocation(c geo.Coordinate) (Marker, error) {
	p := m.project(c, m.radius)
	m.Clear()

	h, err := m.graph.AddMarker(m.mesh, p, m.follow)
	if err != nil {
		return Marker{}, fmt.Errorf("%w: %w", ErrSceneFull, err)
	}
	m.current = Marker{Coordinate: c, Position: p, Handle: h}
	m.live = true
	return m.current, nil
}

// Clear removes the current marker. It is a no-op without one.
func (m *Manager) Clear() {
	if !m.live {
		return
	}
	m.graph.Remove(m.current.Handle)
	m.current = Marker{}
	m.live = false
}

// Current returns the live marker, if any.
func (m *Manager) Current() (Marker, bool) {
	return m.current, m.live
}

func (m *Manager) Radius() float64 { return m.radius }
