/*
Package geo provides geofence validation for attendance verification.

PURPOSE:
  A site defines a circular fence: a center coordinate plus an allowed
  radius in meters. An employee's reported position is verified iff the
  great-circle distance from the center is within the radius.

KEY CONCEPTS IN THIS FILE (fence.go):
  - Point:  A WGS84 coordinate in degrees
  - Fence:  Center + radius, the verification boundary for a site
  - Result: Outcome of a fence check (inside/outside + distance)

DESIGN PRINCIPLES:
  1. Pure functions: no state, no side effects, no failure modes
  2. Callers validate: Check assumes Valid() coordinates; malformed
     input must be rejected at the boundary before reaching here
  3. Distance is always returned, inside or outside, so callers can
     surface "you are 150m away" feedback

ALGORITHM:
  Haversine great-circle distance with a fixed Earth radius of
  6,371,000 m. Inputs are degrees, converted to radians internally.

USAGE:
  fence := geo.Fence{Center: site.Location, RadiusMeters: site.Radius}
  res := fence.Check(geo.Point{Lat: lat, Lng: lng})
  if !res.Within {
      // res.DistanceMeters tells the employee how far off they are
  }
*/
package geo

import "math"

// EarthRadiusMeters is the fixed sphere radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// =============================================================================
// POINT - WGS84 coordinate in degrees
// =============================================================================

type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinate is a real position:
// latitude in [-90, 90], longitude in [-180, 180], no NaN/Inf.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// =============================================================================
// DISTANCE - Haversine great-circle distance
// =============================================================================

// Distance returns the great-circle distance between a and b in meters.
// Symmetric: Distance(a, b) == Distance(b, a).
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// =============================================================================
// FENCE - Circular verification boundary around a site
// =============================================================================

type Fence struct {
	Center       Point
	RadiusMeters float64
}

// Result is the outcome of a fence check.
type Result struct {
	Within         bool
	DistanceMeters float64
}

// Check reports whether p lies within the fence. The boundary is inclusive:
// distance == radius counts as inside.
func (f Fence) Check(p Point) Result {
	d := Distance(f.Center, p)
	return Result{
		Within:         d <= f.RadiusMeters,
		DistanceMeters: d,
	}
}
