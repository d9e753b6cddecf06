// Package geo holds geographic coordinates and their projection onto the model sphere.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for surface distances.
const EarthRadiusKm = 6371.0

// ErrUnknownProjection is returned by ProjectionByName for an unsupported name.
var ErrUnknownProjection = errors.New("unknown projection")

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// LatLng converts c to an s2 angle pair.
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

// Valid reports whether both angles are finite and inside [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return c.LatLng().IsValid()
}

// DistanceKm is the great-circle distance between c and o on the Earth.
func (c Coordinate) DistanceKm(o Coordinate) float64 {
	return c.LatLng().Distance(o.LatLng()).Radians() * EarthRadiusKm
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Lat, c.Lon)
}

// Point is a Cartesian position in scene units.
type Point struct {
	X, Y, Z float64
}

// Len returns the distance from the origin.
func (p Point) Len() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Z)
}

// Projection maps a coordinate onto a sphere of the given radius.
type Projection func(c Coordinate, radius float64) Point

func radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}

// Project is the projection markers have always used:
//
//	x = r·cos(lat)·cos(lon), y = r·sin(lat), z = r·cos(lat)·sin(lon)
//
// The result lies on the sphere for any finite input. It does not line up with an
// equirectangular texture on a UV sphere; ProjectTextureAligned does.
func Project(c Coordinate, radius float64) Point {
	lat := radians(c.Lat)
	lon := radians(c.Lon)
	return Point{
		X: radius * math.Cos(lat) * math.Cos(lon),
		Y: radius * math.Sin(lat),
		Z: radius * math.Cos(lat) * math.Sin(lon),
	}
}

// ProjectTextureAligned places lon 0 on +Z and lon 90°E on +X, matching the seam of an
// equirectangular texture wrapped around a Y-up UV sphere.
func ProjectTextureAligned(c Coordinate, radius float64) Point {
	lat := radians(c.Lat)
	lon := radians(c.Lon)
	return Point{
		X: radius * math.Cos(lat) * math.Sin(lon),
		Y: radius * math.Sin(lat),
		Z: radius * math.Cos(lat) * math.Cos(lon),
	}
}

// ProjectionByName resolves "legacy" (or "") and "texture".
func ProjectionByName(name string) (Projection, error) {
	switch name {
	case "", "legacy":
		return Project, nil
	case "texture":
		return ProjectTextureAligned, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, name)
	}
}
