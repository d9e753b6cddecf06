// Package scene holds the renderable objects of the globe view: one globe mesh, the light
// rig, the camera and at most one marker.
//
// A Graph is not safe for concurrent use. It is owned by the view and only touched from the
// render thread.
package scene

import (
	"errors"

	"globe/earth/geo"
	"globe/earth/softgl"
)

var (
	// ErrFull is returned when every object slot is taken.
	ErrFull = errors.New("scene: no free object slot")
	// ErrGlobePresent is returned by a second AddGlobe.
	ErrGlobePresent = errors.New("scene: globe already added")
	// ErrMarkerPresent is returned by AddMarker while a marker is live.
	ErrMarkerPresent = errors.New("scene: marker already present")
)

// DefaultCapacity fits the globe, one marker and headroom for a replacement in flight.
const DefaultCapacity = 4

// Kind tells what an object is.
type Kind uint8

const (
	KindNone Kind = iota
	KindGlobe
	KindMarker
)

func (k Kind) String() string {
	switch k {
	case KindGlobe:
		return "globe"
	case KindMarker:
		return "marker"
	default:
		return "none"
	}
}

// Handle is an opaque reference to an object in a Graph. The zero Handle refers to nothing,
// and a handle stays dead once its object is removed even if the slot is reused.
type Handle struct {
	slot int32
	gen  uint32
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool { return h.gen == 0 }

type object struct {
	gen    uint32
	alive  bool
	kind   Kind
	mesh   softgl.Mesh
	pos    geo.Point
	follow bool
}

// Graph is the scene graph.
type Graph struct {
	Camera softgl.Camera
	Light  softgl.Light

	objects []object
	globe   Handle
	tilt    float64
	spin    float64
	markers int
}

// New allocates a graph with room for capacity objects.
func New(capacity int) *Graph {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Graph{
		Camera:  softgl.DefaultCamera(),
		Light:   softgl.Light{Ambient: 0.25, Dir: softgl.DirectionalFrom(softgl.V3(1, 1, 1)), DirAmount: 0.75},
		objects: make([]object, capacity),
	}
}

func (g *Graph) alloc(kind Kind, mesh softgl.Mesh) (Handle, *object, error) {
	for i := range g.objects {
		o := &g.objects[i]
		if o.alive {
			continue
		}
		*o = object{gen: o.gen + 1, alive: true, kind: kind, mesh: mesh}
		return Handle{slot: int32(i), gen: o.gen}, o, nil
	}
	return Handle{}, nil, ErrFull
}

func (g *Graph) lookup(h Handle) *object {
	if h.gen == 0 || h.slot < 0 || int(h.slot) >= len(g.objects) {
		return nil
	}
	o := &g.objects[h.slot]
	if !o.alive || o.gen != h.gen {
		return nil
	}
	return o
}

// AddGlobe inserts the globe mesh tilted by tiltRad about the X axis.
func (g *Graph) AddGlobe(mesh softgl.Mesh, tiltRad float64) (Handle, error) {
	if g.lookup(g.globe) != nil {
		return Handle{}, ErrGlobePresent
	}
	h, _, err := g.alloc(KindGlobe, mesh)
	if err != nil {
		return Handle{}, err
	}
	g.globe = h
	g.tilt = tiltRad
	g.applyRotation()
	return h, nil
}

// AddMarker inserts a marker mesh centred at pos. With followGlobe the marker is placed in
// the globe's rotating frame; otherwise it stays fixed in world space.
//
// The graph never holds two markers: the current one must be removed first.
func (g *Graph) AddMarker(mesh softgl.Mesh, pos geo.Point, followGlobe bool) (Handle, error) {
	if g.markers > 0 {
		return Handle{}, ErrMarkerPresent
	}
	h, o, err := g.alloc(KindMarker, mesh)
	if err != nil {
		return Handle{}, err
	}
	o.pos = pos
	o.follow = followGlobe
	o.mesh.Transform = g.markerTransform(o)
	g.markers++
	return h, nil
}

// Remove deletes the object behind h. It reports false for dead or zero handles.
func (g *Graph) Remove(h Handle) bool {
	o := g.lookup(h)
	if o == nil {
		return false
	}
	if o.kind == KindMarker {
		g.markers--
	}
	if h == g.globe {
		g.globe = Handle{}
	}
	o.alive = false
	o.mesh = softgl.Mesh{}
	return true
}

// Contains reports whether h refers to a live object.
func (g *Graph) Contains(h Handle) bool { return g.lookup(h) != nil }

// KindOf returns the kind of a live object, KindNone otherwise.
func (g *Graph) KindOf(h Handle) Kind {
	if o := g.lookup(h); o != nil {
		return o.kind
	}
	return KindNone
}

// Position returns the position a marker was placed at, in its own frame.
func (g *Graph) Position(h Handle) (geo.Point, bool) {
	o := g.lookup(h)
	if o == nil || o.kind != KindMarker {
		return geo.Point{}, false
	}
	return o.pos, true
}

// Markers returns handles of all live markers.
func (g *Graph) Markers() []Handle {
	var out []Handle
	for i := range g.objects {
		o := &g.objects[i]
		if o.alive && o.kind == KindMarker {
			out = append(out, Handle{slot: int32(i), gen: o.gen})
		}
	}
	return out
}

// MarkerCount returns the number of live markers, never more than one.
func (g *Graph) MarkerCount() int { return g.markers }

// Globe returns the globe handle if one was added.
func (g *Graph) Globe() (Handle, bool) {
	if g.lookup(g.globe) == nil {
		return Handle{}, false
	}
	return g.globe, true
}

// Len returns the number of live objects.
func (g *Graph) Len() int {
	n := 0
	for i := range g.objects {
		if g.objects[i].alive {
			n++
		}
	}
	return n
}

// SetGlobeRotation sets the spin of the globe about its (tilted) polar axis.
func (g *Graph) SetGlobeRotation(rad float64) {
	g.spin = rad
	g.applyRotation()
}

// GlobeRotation returns the spin last set with SetGlobeRotation.
func (g *Graph) GlobeRotation() float64 { return g.spin }

func (g *Graph) globeModel() softgl.Mat4 {
	return softgl.EulerXYZ(g.tilt, g.spin, 0)
}

func (g *Graph) markerTransform(o *object) softgl.Mat4 {
	t := softgl.Translate(softgl.V3d(o.pos.X, o.pos.Y, o.pos.Z))
	if o.follow {
		return softgl.Mul(g.globeModel(), t)
	}
	return t
}

func (g *Graph) applyRotation() {
	if o := g.lookup(g.globe); o != nil {
		o.mesh.Transform = g.globeModel()
	}
	for i := range g.objects {
		o := &g.objects[i]
		if o.alive && o.kind == KindMarker && o.follow {
			o.mesh.Transform = g.markerTransform(o)
		}
	}
}

// EachMesh feeds live meshes to the renderer, globe first.
func (g *Graph) EachMesh(fn func(m *softgl.Mesh)) {
	if o := g.lookup(g.globe); o != nil {
		fn(&o.mesh)
	}
	for i := range g.objects {
		o := &g.objects[i]
		if o.alive && o.kind != KindGlobe {
			fn(&o.mesh)
		}
	}
}

// Mesh exposes the mesh behind h for inspection.
func (g *Graph) Mesh(h Handle) (*softgl.Mesh, bool) {
	o := g.lookup(h)
	if o == nil {
		return nil, false
	}
	return &o.mesh, true
}
