package softgl

// Light is an ambient term plus one directional light.
//
// Dir points from the light towards the scene. A zero Dir leaves only the ambient term.
type Light struct {
	Ambient   float32 // 0..1
	Dir       Vec3
	DirAmount float32 // 0..1
}

// DirectionalFrom returns a light direction for a light placed at pos shining at the origin.
func DirectionalFrom(pos Vec3) Vec3 {
	return Normalize(pos.Scale(-1))
}

func (l Light) intensity(n Vec3) float32 {
	amb := clamp01(l.Ambient)
	ld := Normalize(l.Dir)
	if ld == (Vec3{}) {
		return amb
	}
	d := Dot(n, ld.Scale(-1))
	if d < 0 {
		d = 0
	}
	return clamp01(amb + d*clamp01(l.DirAmount))
}
