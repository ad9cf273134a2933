package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InBounds reports whether the point lies within the conventional
// latitude/longitude ranges.
func (p GeoPoint) InBounds() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// GeoLineString represents an ordered sequence of geographic coordinates.
type GeoLineString struct {
	Coordinates []GeoPoint `json:"coordinates"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Bounds returns the axis-aligned bounding box of the line string.
// The zero Bounds is returned for an empty line.
func (l GeoLineString) Bounds() Bounds {
	if len(l.Coordinates) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: l.Coordinates[0].Lat, MaxLat: l.Coordinates[0].Lat,
		MinLon: l.Coordinates[0].Lon, MaxLon: l.Coordinates[0].Lon,
	}
	for _, p := range l.Coordinates[1:] {
		if p.Lat < b.MinLat {
			b.MinLat = p.Lat
		}
		if p.Lat > b.MaxLat {
			b.MaxLat = p.Lat
		}
		if p.Lon < b.MinLon {
			b.MinLon = p.Lon
		}
		if p.Lon > b.MaxLon {
			b.MaxLon = p.Lon
		}
	}
	return b
}
