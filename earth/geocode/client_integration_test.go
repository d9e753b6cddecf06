//go:build integration

package geocode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globe/earth/geo"
)

func TestClient_Resolve_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coord, err := NewClient().Resolve(ctx, "New York")
	require.NoError(t, err)
	t.Logf("New York resolved to %s", coord)

	want := geo.Coordinate{Lat: 40.7128, Lon: -74.0060}
	assert.Less(t, coord.DistanceKm(want), 50.0)
}
