// Package polyline implements Google's encoded polyline algorithm format:
// a compact, printable-ASCII representation of an ordered sequence of
// geographic coordinates.
//
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
//
// Coordinates are quantized to a fixed number of decimal digits (the
// precision), differenced against the previous point, zig-zag transformed,
// and packed into 5-bit chunks with a continuation bit. Encode and Decode
// hold no state between calls and are safe for concurrent use.
package polyline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultPrecision is the precision used by Google Maps and most routing
// engines (1e-5 degrees, roughly one meter at the equator).
const DefaultPrecision = 5

// MaxPrecision bounds the supported precision range. With int64 arithmetic,
// scaled longitudes at precision 9 stay below 2^38, leaving ample headroom
// for deltas and the zig-zag shift.
const MaxPrecision = 9

var (
	// ErrInvalidPrecision is returned when precision is outside [0, MaxPrecision].
	ErrInvalidPrecision = errors.New("polyline: invalid precision")

	// ErrMalformedInput is returned by Decode for input that is truncated
	// mid-chunk or contains bytes outside the encoded alphabet.
	ErrMalformedInput = errors.New("polyline: malformed input")
)

// Point is a geographic coordinate (WGS 84), latitude and longitude in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InBounds reports whether the point lies within the conventional geographic
// ranges (lat in [-90, 90], lon in [-180, 180]). The codec itself never
// enforces this; callers that require valid geography check it themselves.
func (p Point) InBounds() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Encode converts a coordinate sequence into an encoded polyline string.
// An empty sequence encodes to "". Any finite coordinates are accepted;
// values are retained to the given number of decimal digits.
func Encode(points []Point, precision int) (string, error) {
	factor, err := scaleFactor(precision)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(points) * 10)

	var prevLat, prevLon int64
	for _, p := range points {
		lat := quantize(p.Lat, factor)
		lon := quantize(p.Lon, factor)
		writeValue(&sb, lat-prevLat)
		writeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String(), nil
}

// Decode converts an encoded polyline string back into coordinates.
// "" decodes to an empty sequence. On malformed input no partial result is
// returned.
func Decode(encoded string, precision int) ([]Point, error) {
	factor, err := scaleFactor(precision)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(encoded)/4)
	var lat, lon int64
	for i := 0; i < len(encoded); {
		dLat, next, err := readValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = next
		if i >= len(encoded) {
			return nil, fmt.Errorf("%w: latitude chunk at end of input has no longitude", ErrMalformedInput)
		}
		dLon, next, err := readValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lon += dLon
		points = append(points, Point{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}
	return points, nil
}

// scaleFactor returns 10^precision, rejecting precisions outside [0, MaxPrecision].
func scaleFactor(precision int) (float64, error) {
	if precision < 0 || precision > MaxPrecision {
		return 0, fmt.Errorf("%w: %d (supported range 0..%d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	factor := 1.0
	for i := 0; i < precision; i++ {
		factor *= 10
	}
	return factor, nil
}

// quantize converts degrees to fixed-point, rounding half away from zero.
func quantize(deg, factor float64) int64 {
	return int64(math.Round(deg * factor))
}

// writeValue zig-zag transforms a signed delta and appends its base-32
// chunks, low bits first. Every chunk but the last carries the 0x20
// continuation bit; all chunks are offset by 63 into printable ASCII.
func writeValue(sb *strings.Builder, delta int64) {
	v := uint64(delta) << 1
	if delta < 0 {
		v = ^v
	}
	for v >= 0x20 {
		sb.WriteByte(byte(0x20|(v&0x1f)) + 63)
		v >>= 5
	}
	sb.WriteByte(byte(v) + 63)
}

// readValue decodes one chunk sequence starting at offset i and returns the
// signed delta and the offset of the next unread byte.
func readValue(encoded string, i int) (int64, int, error) {
	var v uint64
	var shift uint
	for {
		if i >= len(encoded) {
			return 0, i, fmt.Errorf("%w: chunk continuation past end of input", ErrMalformedInput)
		}
		b := int64(encoded[i]) - 63
		if b < 0 {
			return 0, i, fmt.Errorf("%w: byte 0x%02x at offset %d below encoded alphabet", ErrMalformedInput, encoded[i], i)
		}
		i++
		v |= uint64(b&0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	delta := int64(v >> 1)
	if v&1 != 0 {
		delta = ^delta
	}
	return delta, i, nil
}
