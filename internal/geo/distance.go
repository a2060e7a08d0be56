package geo

import "math"

const earthRadiusMeters = 6_371_000

// Haversine returns the great-circle distance in meters between two lat/lon points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Box is a lat/lon rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a box that contains every point within radiusMeters of lat/lon.
func BoundingBox(lat, lon, radiusMeters float64) Box {
	latDeg := radiusMeters / earthRadiusMeters * (180 / math.Pi)
	lonDeg := latDeg / math.Cos(toRad(lat))
	return Box{
		MinLat: lat - latDeg, MaxLat: lat + latDeg,
		MinLon: lon - lonDeg, MaxLon: lon + lonDeg,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
