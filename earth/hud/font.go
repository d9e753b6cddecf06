package hud

import (
	"image/color"

	"golang.org/x/image/font/basicfont"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Font is the HUD font: the 7x13 face from x/image exposed as a tinyfont.Fonter.
//
// Concurrent access is not safe due to internal glyph reuse.
var Font tinyfont.Fonter = newFaceFont(basicfont.Face7x13)

type faceFont struct {
	face *basicfont.Face
	g    faceGlyph
}

type faceGlyph struct {
	face *basicfont.Face
	r    rune
	idx  int
}

func newFaceFont(face *basicfont.Face) *faceFont {
	return &faceFont{face: face, g: faceGlyph{face: face}}
}

func (f *faceFont) GetYAdvance() uint8 { return uint8(f.face.Height + 1) }

func (f *faceFont) GetGlyph(r rune) tinyfont.Glypher {
	f.g.r = r
	f.g.idx = glyphIndex(f.face, r)
	return &f.g
}

func glyphIndex(face *basicfont.Face, r rune) int {
	for _, rng := range face.Ranges {
		if r >= rng.Low && r < rng.High {
			return rng.Offset + int(r-rng.Low)
		}
	}
	if r != '?' {
		return glyphIndex(face, '?')
	}
	return -1
}

// Draw plots the glyph with its baseline at y.
func (g *faceGlyph) Draw(display drivers.Displayer, x, y int16, c color.RGBA) {
	if g.idx < 0 {
		return
	}
	top := g.idx * g.face.Height
	for row := 0; row < g.face.Height; row++ {
		for col := 0; col < g.face.Width; col++ {
			_, _, _, a := g.face.Mask.At(col, top+row).RGBA()
			if a < 0x8000 {
				continue
			}
			display.SetPixel(x+int16(col), y-int16(g.face.Ascent)+int16(row), c)
		}
	}
}

func (g *faceGlyph) Info() tinyfont.GlyphInfo {
	return tinyfont.GlyphInfo{
		Rune:     g.r,
		Width:    uint8(g.face.Width),
		Height:   uint8(g.face.Height),
		XAdvance: uint8(g.face.Advance),
		XOffset:  0,
		YOffset:  int8(-g.face.Ascent),
	}
}
