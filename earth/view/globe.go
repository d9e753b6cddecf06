package view

import (
	"math"

	"globe/earth/softgl"
)

var (
	colOceanDeep    = softgl.Hex(0x1B4F8A)
	colOceanShallow = softgl.Hex(0x2E7DC4)
	colIce          = softgl.Hex(0xE8F0F8)
	colGrid         = softgl.Hex(0x7FB2E0)
)

// GlobeMesh builds the painted globe sphere. Without a texture the surface shows ocean
// shading, polar caps and a 30° graticule so the spin stays visible.
func GlobeMesh(radius float64, segments, rings int) softgl.Mesh {
	m := softgl.UVSphere(float32(radius), segments, rings)
	m.Paint(globeColor)
	return m
}

func globeColor(p softgl.Vec3) softgl.Color {
	n := softgl.Normalize(p)
	lat := math.Asin(float64(n.Y)) * 180 / math.Pi
	lon := math.Atan2(float64(n.Z), float64(-n.X)) * 180 / math.Pi

	if math.Abs(lat) >= 70 {
		return colIce
	}
	if nearMultiple(lat, 30, 2) || nearMultiple(lon, 30, 2) {
		return colGrid
	}
	if int(math.Floor(lon/30))%2 == 0 {
		return colOceanShallow
	}
	return colOceanDeep
}

func nearMultiple(v, step, tol float64) bool {
	r := math.Mod(math.Abs(v), step)
	return r < tol || step-r < tol
}
