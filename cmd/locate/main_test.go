package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/earth/geo"
	"globe/earth/geocode"
	"globe/internal/config"
)

type fixed struct {
	c   geo.Coordinate
	err error
}

func (f fixed) Resolve(context.Context, string) (geo.Coordinate, error) { return f.c, f.err }

func TestLocateText(t *testing.T) {
	var buf bytes.Buffer
	_, err := locate(context.Background(), fixed{c: geo.Coordinate{Lat: 0, Lon: 0}}, "Null Island", 2, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Null Island: (0.0000, 0.0000)")
	assert.Contains(t, buf.String(), "legacy:")
	assert.Contains(t, buf.String(), "texture:")
}

func TestLocateJSON(t *testing.T) {
	asJSON = true
	t.Cleanup(func() { asJSON = false })

	c := geo.Coordinate{Lat: 40.7128, Lon: -74.006}
	var buf bytes.Buffer
	coord, err := locate(context.Background(), fixed{c: c}, "New York", 2, &buf)
	require.NoError(t, err)
	assert.Equal(t, c, coord)

	var got result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "New York", got.Query)
	assert.InDelta(t, c.Lat, got.Lat, 1e-12)
	assert.InDelta(t, geo.Project(c, 2).X, got.Legacy.X, 1e-12)
	assert.InDelta(t, geo.ProjectTextureAligned(c, 2).Z, got.Texture.Z, 1e-12)
}

func TestLocateError(t *testing.T) {
	var buf bytes.Buffer
	_, err := locate(context.Background(), fixed{err: geocode.ErrNotFound}, "Atlantis", 2, &buf)
	assert.ErrorIs(t, err, geocode.ErrNotFound)
	assert.Empty(t, buf.String())
}

func TestWriteSnapshot(t *testing.T) {
	cfg, err := config.Decode(config.New(""))
	require.NoError(t, err)
	cfg.Display.Width, cfg.Display.Height = 48, 32

	path := filepath.Join(t.TempDir(), "globe.png")
	require.NoError(t, writeSnapshot(cfg, zerolog.Nop(), geo.Coordinate{Lat: 51.5, Lon: -0.12}, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 48, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}
