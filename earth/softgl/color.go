package softgl

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 0xFF} }

// Hex builds an opaque color from 0xRRGGBB.
func Hex(v uint32) Color {
	return RGB(uint8(v>>16), uint8(v>>8), uint8(v))
}

// Shade scales the RGB channels by s, clamped to [0,1]. Alpha is kept.
func (c Color) Shade(s float32) Color {
	t := uint32(clamp01(s) * 255)
	mul := func(ch uint8) uint8 {
		return uint8((uint32(ch) * t) / 255)
	}
	return Color{R: mul(c.R), G: mul(c.G), B: mul(c.B), A: c.A}
}

func lerpColor(c0, c1, c2 Color, a0, a1, a2 float32) Color {
	ch := func(v0, v1, v2 uint8) uint8 {
		return uint8(clampF32(a0*float32(v0)+a1*float32(v1)+a2*float32(v2), 0, 255))
	}
	return Color{R: ch(c0.R, c1.R, c2.R), G: ch(c0.G, c1.G, c2.G), B: ch(c0.B, c1.B, c2.B), A: 0xFF}
}
