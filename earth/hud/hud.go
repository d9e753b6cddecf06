// Package hud draws the query line and status notices over the rendered globe.
package hud

import (
	"image/color"

	"tinygo.org/x/tinyfont"

	"globe/earth/softgl"
)

const (
	Prompt = "Search: "

	// MaxQueryRunes bounds the query line.
	MaxQueryRunes = 64

	// DefaultNoticeFrames keeps a notice up for about four seconds at 60 Hz.
	DefaultNoticeFrames = 240
)

// Level selects the notice color.
type Level uint8

const (
	LevelInfo Level = iota
	LevelError
)

var (
	colText   = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	colDim    = color.RGBA{R: 0x88, G: 0x99, B: 0xAA, A: 0xFF}
	colError  = color.RGBA{R: 0xFF, G: 0x55, B: 0x55, A: 0xFF}
	colBand   = softgl.Hex(0x101820)
	colCursor = softgl.Hex(0xFFFFFF)
)

// HUD holds the text overlay state. It is drawn after the scene on every frame.
type HUD struct {
	font  tinyfont.Fonter
	query []rune

	notice      string
	level       Level
	noticeTTL   int
	status      string
	frame       uint64
	showCursor  bool
	noticeLimit int
}

func New() *HUD {
	return &HUD{font: Font, showCursor: true, noticeLimit: DefaultNoticeFrames}
}

// SetNoticeFrames changes how long notices stay up. Zero or less keeps them until replaced.
func (h *HUD) SetNoticeFrames(n int) { h.noticeLimit = n }

func (h *HUD) Query() string { return string(h.query) }

func (h *HUD) SetQuery(s string) {
	h.query = h.query[:0]
	for _, r := range s {
		h.Insert(r)
	}
}

// Insert appends a printable rune to the query.
func (h *HUD) Insert(r rune) {
	if r < 0x20 || r == 0x7f || len(h.query) >= MaxQueryRunes {
		return
	}
	h.query = append(h.query, r)
}

func (h *HUD) Backspace() {
	if len(h.query) > 0 {
		h.query = h.query[:len(h.query)-1]
	}
}

func (h *HUD) ClearQuery() { h.query = h.query[:0] }

// SetNotice shows msg on the bottom line.
func (h *HUD) SetNotice(level Level, msg string) {
	h.notice = msg
	h.level = level
	h.noticeTTL = h.noticeLimit
}

// Notice returns the visible notice.
func (h *HUD) Notice() (string, Level, bool) {
	return h.notice, h.level, h.notice != ""
}

func (h *HUD) ClearNotice() {
	h.notice = ""
	h.noticeTTL = 0
}

// SetStatus sets the text shown when no notice is up, typically the marker location.
func (h *HUD) SetStatus(s string) { h.status = s }

func (h *HUD) Status() string { return h.status }

// Tick advances per-frame state: notice expiry and the cursor blink.
func (h *HUD) Tick() {
	h.frame++
	h.showCursor = (h.frame/30)%2 == 0
	if h.notice == "" || h.noticeTTL <= 0 {
		return
	}
	h.noticeTTL--
	if h.noticeTTL == 0 {
		h.notice = ""
	}
}

// Draw renders the overlay onto t.
func (h *HUD) Draw(t softgl.Target) {
	if t == nil {
		return
	}
	w, ht := t.Size()
	if w <= 0 || ht <= 0 {
		return
	}
	d := display{t: t}
	lineH := int(h.font.GetYAdvance()) + 4
	baseline := func(top int) int16 { return int16(top + 2 + int(h.font.GetYAdvance()) - 3) }

	fillRect(t, 0, 0, w, lineH, colBand)
	tinyfont.WriteLine(d, h.font, 4, baseline(0), Prompt, colDim)
	px := 4 + textWidth(h.font, Prompt)
	query := truncateLeft(h.font, string(h.query), w-px-8)
	tinyfont.WriteLine(d, h.font, int16(px), baseline(0), query, colText)
	if h.showCursor {
		cx := px + textWidth(h.font, query) + 1
		fillRect(t, cx, 3, 2, lineH-6, colCursor)
	}

	msg, c := h.status, colDim
	if h.notice != "" {
		msg, c = h.notice, colText
		if h.level == LevelError {
			c = colError
		}
	}
	if msg == "" {
		return
	}
	top := ht - lineH
	fillRect(t, 0, top, w, lineH, colBand)
	tinyfont.WriteLine(d, h.font, 4, baseline(top), truncateToWidth(h.font, msg, w-8), c)
}

// display adapts a softgl target to the tinyfont drawing interface.
type display struct {
	t softgl.Target
}

func (d display) Size() (x, y int16) {
	w, h := d.t.Size()
	return int16(w), int16(h)
}

func (d display) SetPixel(x, y int16, c color.RGBA) {
	d.t.SetPixel(int(x), int(y), softgl.RGB(c.R, c.G, c.B))
}

func (d display) Display() error { return nil }

func fillRect(t softgl.Target, x, y, w, h int, c softgl.Color) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			t.SetPixel(i, j, c)
		}
	}
}

// textWidth is the advance width of s.
func textWidth(f tinyfont.Fonter, s string) int {
	if s == "" {
		return 0
	}
	_, outbox := tinyfont.LineWidth(f, s)
	return int(outbox)
}

func truncateToWidth(f tinyfont.Fonter, s string, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	if textWidth(f, s) <= maxW {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if textWidth(f, string(r)+"~") <= maxW {
			return string(r) + "~"
		}
	}
	return ""
}

// truncateLeft keeps the tail of s so the cursor end of the query stays visible.
func truncateLeft(f tinyfont.Fonter, s string, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	r := []rune(s)
	for len(r) > 0 && textWidth(f, string(r)) > maxW {
		r = r[1:]
	}
	return string(r)
}
