package softgl

import "math"

// Material is a minimal surface description.
type Material struct {
	Color Color

	// Unlit surfaces ignore the scene light.
	Unlit bool

	// VertexColors interpolates Vertex.Color across each triangle instead of using Color.
	VertexColors bool
}

// Vertex is a mesh vertex.
type Vertex struct {
	Pos   Vec3
	Color Color
}

// Mesh is an indexed triangle list with a model transform.
//
// Vertices and Indices may be shared between meshes; the renderer never writes to them.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16

	Transform Mat4
	Material  Material
	Hidden    bool
}

// Triangles returns the number of triangles described by Indices.
func (m *Mesh) Triangles() int { return len(m.Indices) / 3 }

// MeshSource hands meshes to the renderer in draw order.
type MeshSource interface {
	EachMesh(fn func(m *Mesh))
}

// MaxVertices is the most vertices a mesh can address with uint16 indices.
const MaxVertices = 1 << 16

// UVSphere builds a sphere centred on the origin.
//
// The vertex layout follows the usual longitude/latitude grid: widthSegments columns around
// the Y axis and heightSegments rows from the north (+Y) to the south pole. Grids that would
// exceed MaxVertices are scaled down, keeping their proportions.
func UVSphere(radius float32, widthSegments, heightSegments int) Mesh {
	widthSegments, heightSegments = SphereSegments(widthSegments, heightSegments)

	cols := widthSegments + 1
	verts := make([]Vertex, 0, cols*(heightSegments+1))
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		sinV, cosV := math.Sincos(v * math.Pi)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			sinU, cosU := math.Sincos(u * 2 * math.Pi)
			verts = append(verts, Vertex{
				Pos: V3(
					float32(-float64(radius)*cosU*sinV),
					float32(float64(radius)*cosV),
					float32(float64(radius)*sinU*sinV),
				),
			})
		}
	}

	indices := make([]uint16, 0, widthSegments*heightSegments*6)
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint16(iy*cols + ix + 1)
			b := uint16(iy*cols + ix)
			c := uint16((iy+1)*cols + ix)
			d := uint16((iy+1)*cols + ix + 1)
			if iy != 0 {
				indices = append(indices, a, b, d)
			}
			if iy != heightSegments-1 {
				indices = append(indices, b, c, d)
			}
		}
	}

	return Mesh{
		Vertices:  verts,
		Indices:   indices,
		Transform: Identity(),
	}
}

// SphereSegments returns the grid UVSphere actually builds for the requested segment counts.
func SphereSegments(width, height int) (int, int) {
	width = max(width, 3)
	height = max(height, 2)
	if (width+1)*(height+1) <= MaxVertices {
		return width, height
	}
	f := math.Sqrt(float64(MaxVertices) / float64((width+1)*(height+1)))
	width = max(int(float64(width)*f), 3)
	height = max(int(float64(height)*f), 2)
	for (width+1)*(height+1) > MaxVertices {
		if width >= 2*height && width > 3 || height <= 2 {
			width--
		} else {
			height--
		}
	}
	return width, height
}

// Paint fills per-vertex colors and switches the material to vertex coloring.
// The vertex slice is copied so shared geometry is left untouched.
func (m *Mesh) Paint(fn func(pos Vec3) Color) {
	verts := make([]Vertex, len(m.Vertices))
	for i, v := range m.Vertices {
		v.Color = fn(v.Pos)
		verts[i] = v
	}
	m.Vertices = verts
	m.Material.VertexColors = true
}
