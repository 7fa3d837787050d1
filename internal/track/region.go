package track

import (
	"fmt"
	"math"
	"slices"

	"github.com/peterstace/simplefeatures/geom"
)

const earthRadius = 6371000.0

// Filter narrows a Query. The zero value matches every live entity.
type Filter struct {
	Kinds  []Kind
	Region Region
}

func (f Filter) matchesKind(k Kind) bool {
	return len(f.Kinds) == 0 || slices.Contains(f.Kinds, k)
}

// Region is an area on the map used for spatial queries.
type Region interface {
	Contains(Waypoint) bool
}

type polygonRegion struct {
	shape geom.Geometry
}

// PolygonWKT parses a WKT polygon (or multipolygon) with lon/lat axis order.
func PolygonWKT(wkt string) (Region, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("parse region: %w", err)
	}
	switch g.Type() {
	case geom.TypePolygon, geom.TypeMultiPolygon:
	default:
		return nil, fmt.Errorf("parse region: %s is not a polygon", g.Type())
	}
	return polygonRegion{shape: g}, nil
}

// BoundingBox returns the axis-aligned box spanning the two corners,
// boundary included.
func BoundingBox(minLat, minLon, maxLat, maxLon float64) (Region, error) {
	if minLat > maxLat || minLon > maxLon {
		return nil, fmt.Errorf("bounding box: min corner (%v,%v) exceeds max corner (%v,%v)", minLat, minLon, maxLat, maxLon)
	}
	env, err := geom.NewEnvelope([]geom.XY{{X: minLon, Y: minLat}, {X: maxLon, Y: maxLat}})
	if err != nil {
		return nil, fmt.Errorf("bounding box: %w", err)
	}
	return envelopeRegion{env: env}, nil
}

type envelopeRegion struct {
	env geom.Envelope
}

func (r envelopeRegion) Contains(p Waypoint) bool {
	return r.env.Contains(geom.XY{X: p.Lon, Y: p.Lat})
}

// Contains reports whether p lies inside or on the boundary of the polygon.
func (r polygonRegion) Contains(p Waypoint) bool {
	pt, err := geom.XY{X: p.Lon, Y: p.Lat}.AsPoint()
	if err != nil {
		return false
	}
	return geom.Intersects(r.shape, pt.AsGeometry())
}

type radiusRegion struct {
	center Waypoint
	meters float64
}

// Radius returns the disc of the given great-circle radius around center.
func Radius(center Waypoint, meters float64) Region {
	return radiusRegion{center: center, meters: meters}
}

func (r radiusRegion) Contains(p Waypoint) bool {
	return DistanceMeters(r.center, p) <= r.meters
}

// DistanceMeters calculates the haversine distance between two points.
func DistanceMeters(a, b Waypoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadius * c
}
