package softgl

// Mode selects the rasterization mode.
type Mode uint8

const (
	ModeSolid Mode = iota
	ModeWireframe
)

// Stats describes the last rendered frame.
type Stats struct {
	Meshes    int
	Triangles int // triangles that survived clipping
}

// Renderer is a fixed-pipeline software renderer.
//
// Create it once per target size and reuse it; the depth buffer is kept between frames.
type Renderer struct {
	Mode       Mode
	Depth      bool
	ClearColor Color

	depthBuf []float32
	stats    Stats
}

// NewRenderer creates a renderer. With depth enabled a w*h depth buffer is allocated up front.
func NewRenderer(w, h int, depth bool) *Renderer {
	r := &Renderer{Mode: ModeSolid, Depth: depth}
	if depth && w > 0 && h > 0 {
		r.depthBuf = make([]float32, w*h)
	}
	return r
}

// Stats returns counters for the most recent Render call.
func (r *Renderer) Stats() Stats { return r.stats }

func (r *Renderer) resetDepth(w, h int) {
	if !r.Depth || w <= 0 || h <= 0 {
		r.depthBuf = nil
		return
	}
	if cap(r.depthBuf) < w*h {
		r.depthBuf = make([]float32, w*h)
	} else {
		r.depthBuf = r.depthBuf[:w*h]
	}
	for i := range r.depthBuf {
		r.depthBuf[i] = 1e9
	}
}

// Render clears t and draws every visible mesh of src as seen through cam.
func (r *Renderer) Render(t Target, cam Camera, light Light, src MeshSource) {
	if r == nil {
		return
	}
	r.stats = Stats{}
	if t == nil || src == nil {
		return
	}
	w, h := t.Size()
	if w <= 0 || h <= 0 {
		return
	}
	t.Clear(r.ClearColor)
	r.resetDepth(w, h)

	viewProj := Mul(cam.ProjectionMatrix(float32(w)/float32(h)), cam.View())
	src.EachMesh(func(m *Mesh) {
		if m == nil || m.Hidden {
			return
		}
		r.stats.Meshes++
		r.drawMesh(t, w, h, viewProj, m, light)
	})
}

type screenVertex struct {
	x, y int
	z    float32
}

func (r *Renderer) drawMesh(t Target, w, h int, viewProj Mat4, m *Mesh, light Light) {
	if len(m.Vertices) == 0 || len(m.Indices) < 3 {
		return
	}
	model := m.Transform
	if model == (Mat4{}) {
		model = Identity()
	}

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
		if i0 >= len(m.Vertices) || i1 >= len(m.Vertices) || i2 >= len(m.Vertices) {
			continue
		}
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]

		// Lighting is evaluated in world space so it stays put while meshes rotate.
		w0 := model.ApplyPoint(v0.Pos)
		w1 := model.ApplyPoint(v1.Pos)
		w2 := model.ApplyPoint(v2.Pos)

		s0, ok0 := toScreen(viewProj, w0, w, h)
		s1, ok1 := toScreen(viewProj, w1, w, h)
		s2, ok2 := toScreen(viewProj, w2, w, h)
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		r.stats.Triangles++

		shade := float32(1)
		if !m.Material.Unlit {
			shade = light.intensity(Normalize(Cross(w1.Sub(w0), w2.Sub(w0))))
		}

		if r.Mode == ModeWireframe {
			c := m.Material.Color.Shade(shade)
			drawLine(t, s0.x, s0.y, s1.x, s1.y, c)
			drawLine(t, s1.x, s1.y, s2.x, s2.y, c)
			drawLine(t, s2.x, s2.y, s0.x, s0.y, c)
			continue
		}

		c0, c1, c2 := m.Material.Color, m.Material.Color, m.Material.Color
		if m.Material.VertexColors {
			c0, c1, c2 = v0.Color, v1.Color, v2.Color
		}
		r.fillTriangle(t, w, h, s0, s1, s2, c0.Shade(shade), c1.Shade(shade), c2.Shade(shade), m.Material.VertexColors)
	}
}

// toScreen projects a world position to pixel coordinates. Points at or behind the camera
// plane are rejected, which drops the whole triangle.
func toScreen(viewProj Mat4, p Vec3, w, h int) (screenVertex, bool) {
	c := viewProj.Apply(Vec4{X: p.X, Y: p.Y, Z: p.Z, W: 1})
	if c.W <= 1e-6 {
		return screenVertex{}, false
	}
	inv := 1 / c.W
	nx, ny, nz := c.X*inv, c.Y*inv, c.Z*inv
	sx := (nx*0.5 + 0.5) * float32(w-1)
	sy := (1 - (ny*0.5 + 0.5)) * float32(h-1)
	return screenVertex{x: int(sx + 0.5), y: int(sy + 0.5), z: nz}, true
}

func (r *Renderer) depthTest(w, x, y int, z float32) bool {
	if r.depthBuf == nil {
		return true
	}
	idx := y*w + x
	if idx < 0 || idx >= len(r.depthBuf) {
		return false
	}
	// NDC z is in [-1,1]; store it in [0,1].
	d := clampF32(z*0.5+0.5, 0, 1)
	if d >= r.depthBuf[idx] {
		return false
	}
	r.depthBuf[idx] = d
	return true
}

func (r *Renderer) fillTriangle(t Target, w, h int, p0, p1, p2 screenVertex, c0, c1, c2 Color, smooth bool) {
	minX, maxX := min(p0.x, p1.x, p2.x), max(p0.x, p1.x, p2.x)
	minY, maxY := min(p0.y, p1.y, p2.y), max(p0.y, p1.y, p2.y)
	minX, minY = max(minX, 0), max(minY, 0)
	maxX, maxY = min(maxX, w-1), min(maxY, h-1)
	if minX > maxX || minY > maxY {
		return
	}

	area := edge(p0.x, p0.y, p1.x, p1.y, p2.x, p2.y)
	if area == 0 {
		return
	}
	// Accept both windings; the depth buffer sorts out what is visible.
	sign := 1
	if area < 0 {
		sign = -1
	}
	invArea := 1 / float32(area)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			e0 := edge(p1.x, p1.y, p2.x, p2.y, x, y)
			e1 := edge(p2.x, p2.y, p0.x, p0.y, x, y)
			e2 := edge(p0.x, p0.y, p1.x, p1.y, x, y)
			if e0*sign < 0 || e1*sign < 0 || e2*sign < 0 {
				continue
			}
			a0 := float32(e0) * invArea
			a1 := float32(e1) * invArea
			a2 := float32(e2) * invArea
			if !r.depthTest(w, x, y, a0*p0.z+a1*p1.z+a2*p2.z) {
				continue
			}
			if smooth {
				t.SetPixel(x, y, lerpColor(c0, c1, c2, a0, a1, a2))
			} else {
				t.SetPixel(x, y, c0)
			}
		}
	}
}

func drawLine(t Target, x0, y0, x1, y1 int, c Color) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		t.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func edge(x0, y0, x1, y1, x, y int) int {
	return (x-x0)*(y1-y0) - (y-y0)*(x1-x0)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
