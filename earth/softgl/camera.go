package softgl

// Projection selects how the camera maps view space to clip space.
type Projection uint8

const (
	ProjectPerspective Projection = iota
	ProjectOrtho
)

// Camera describes the viewing transform.
type Camera struct {
	Projection Projection

	Position Vec3
	Target   Vec3
	Up       Vec3

	// Perspective.
	FOVYRad float32

	// Orthographic (half-height).
	OrthoSize float32

	Near float32
	Far  float32
}

// DefaultCamera looks at the origin from +Z.
func DefaultCamera() Camera {
	return Camera{
		Projection: ProjectPerspective,
		Position:   V3(0, 0, 3),
		Up:         V3(0, 1, 0),
		FOVYRad:    1.0,
		OrthoSize:  1,
		Near:       0.05,
		Far:        100,
	}
}

// View returns the camera view matrix.
func (c Camera) View() Mat4 {
	up := c.Up
	if up == (Vec3{}) {
		up = V3(0, 1, 0)
	}
	return LookAt(c.Position, c.Target, up)
}

// ProjectionMatrix returns the projection matrix for a target aspect ratio.
func (c Camera) ProjectionMatrix(aspect float32) Mat4 {
	if c.Projection == ProjectOrtho {
		size := c.OrthoSize
		if size == 0 {
			size = 1
		}
		right := size * aspect
		return Ortho(-right, right, -size, size, c.Near, c.Far)
	}
	fov := c.FOVYRad
	if fov == 0 {
		fov = 1
	}
	return Perspective(fov, aspect, c.Near, c.Far)
}
