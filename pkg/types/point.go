package types

import "crypto/sha256"

// Point is a fixed-point planar coordinate. Equality is exact: two points
// are equal iff their raw Q32.32 bit patterns match in both components.
type Point struct {
	X Coord `json:"x"`
	Y Coord `json:"y"`
}

// NewPoint constructs a Point from fixed-point coordinates.
func NewPoint(x, y Coord) Point {
	return Point{X: x, Y: y}
}

// Equals reports exact equality.
func (p Point) Equals(other Point) bool {
	return p.X == other.X && p.Y == other.Y
}

// Midpoint returns the exact fixed-point midpoint of p and other.
func (p Point) Midpoint(other Point) Point {
	sumX := int64(p.X) + int64(other.X)
	sumY := int64(p.Y) + int64(other.Y)
	return Point{X: Coord(sumX / 2), Y: Coord(sumY / 2)}
}

// Hash returns SHA-256(x_le_bytes || y_le_bytes), the canonical per-vertex
// hash used to build a permutation-invariant Triangle hash.
func (p Point) Hash() Hash {
	h := sha256.New()
	h.Write(p.X.Bytes())
	h.Write(p.Y.Bytes())
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// withinBound reports whether both components stay within MaxCoordinate in
// magnitude.
func (p Point) withinBound() bool {
	return p.X.Abs() <= MaxCoordinate && p.Y.Abs() <= MaxCoordinate
}
