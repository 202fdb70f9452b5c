package types

import "crypto/sha256"

// Triangle is the unit of value in TrinityChain: three fixed-point vertices,
// an owner, an optional explicit value, and the hash of the parent triangle
// it was produced from by subdivision (zero hash for a triangle minted
// directly by a coinbase or otherwise without a geometric parent).
type Triangle struct {
	A, B, C    Point
	ParentHash Hash
	HasParent  bool
	Owner      Address
	Value      Coord
	HasValue   bool
}

// NewTriangle constructs a triangle with no explicit value (area is used).
func NewTriangle(a, b, c Point, owner Address) Triangle {
	return Triangle{A: a, B: b, C: c, Owner: owner}
}

// WithValue returns a copy of t carrying an explicit effective value.
func (t Triangle) WithValue(v Coord) Triangle {
	t.Value = v
	t.HasValue = true
	return t
}

// WithParent returns a copy of t recording its parent triangle's hash.
func (t Triangle) WithParent(parent Hash) Triangle {
	t.ParentHash = parent
	t.HasParent = true
	return t
}

// Area computes the shoelace-formula area on fixed-point coordinates:
// |Σ xᵢ(yⱼ − yₖ)| / 2.
func (t Triangle) Area() Coord {
	ax, ay := t.A.X, t.A.Y
	bx, by := t.B.X, t.B.Y
	cx, cy := t.C.X, t.C.Y

	term1 := ax.Mul(by.Sub(cy))
	term2 := bx.Mul(cy.Sub(ay))
	term3 := cx.Mul(ay.Sub(by))

	sum := term1.Add(term2).Add(term3).Abs()
	half, _ := sum.DivSmall(2)
	return half
}

// EffectiveValue returns the explicit value if set, otherwise the area.
func (t Triangle) EffectiveValue() Coord {
	if t.HasValue {
		return t.Value
	}
	return t.Area()
}

// IsValid reports whether every vertex is within the magnitude bound and
// the area exceeds the geometric tolerance.
func (t Triangle) IsValid() bool {
	if !t.A.withinBound() || !t.B.withinBound() || !t.C.withinBound() {
		return false
	}
	return t.Area() > GeometricTolerance
}

// Hash computes the canonical, vertex-permutation-invariant triangle hash:
// SHA-256 over the three vertex hashes (sorted), then the owner bytes, then
// the explicit value bytes if present.
func (t Triangle) Hash() Hash {
	hashes := []Hash{t.A.Hash(), t.B.Hash(), t.C.Hash()}
	SortHashes(hashes)

	h := sha256.New()
	for _, vh := range hashes {
		h.Write(vh[:])
	}
	h.Write([]byte(t.Owner))
	if t.HasValue {
		h.Write(t.Value.Bytes())
	}

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// splitThree divides a value three ways, with the third share absorbing the
// truncation remainder so the three shares sum exactly back to value.
func splitThree(value Coord) [3]Coord {
	raw := value.Raw()
	q := raw / 3
	r := raw % 3
	return [3]Coord{Coord(q), Coord(q), Coord(q + r)}
}

// SubdivideWithValue returns the three midpoint-subdivision children of t,
// each carrying a share of totalValue (split via splitThree so the shares
// sum exactly to totalValue) instead of t's own effective value. Used by
// transaction validation, which must split (parent value − fee), not the
// parent's raw value.
func (t Triangle) SubdivideWithValue(totalValue Coord) [3]Triangle {
	abMid := t.A.Midpoint(t.B)
	bcMid := t.B.Midpoint(t.C)
	caMid := t.C.Midpoint(t.A)

	parentHash := t.Hash()
	shares := splitThree(totalValue)

	return [3]Triangle{
		NewTriangle(t.A, abMid, caMid, t.Owner).WithParent(parentHash).WithValue(shares[0]),
		NewTriangle(abMid, t.B, bcMid, t.Owner).WithParent(parentHash).WithValue(shares[1]),
		NewTriangle(caMid, bcMid, t.C, t.Owner).WithParent(parentHash).WithValue(shares[2]),
	}
}

// Subdivide returns the three midpoint-subdivision children of t, splitting
// t's own effective value three ways (no fee deducted). This is the
// reference operation named in the geometry contract; fee-bearing
// subdivision transactions use SubdivideWithValue against (value − fee)
// instead.
func (t Triangle) Subdivide() [3]Triangle {
	return t.SubdivideWithValue(t.EffectiveValue())
}

// SameGeometry reports whether the three vertices of t exactly match other's
// (irrespective of owner, value, or parent hash), used to check a proposed
// subdivision's children against the expected midpoint construction.
func (t Triangle) SameGeometry(other Triangle) bool {
	return t.A.Equals(other.A) && t.B.Equals(other.B) && t.C.Equals(other.C)
}

// Genesis returns TrinityChain's fixed genesis triangle: a near-equilateral
// triangle with side length √3 (in fixed-point units), owned by the
// well-known "genesis_owner" address, with no explicit value (its effective
// value is its geometric area, ≈1.2990381).
func Genesis() Triangle {
	return NewTriangle(
		NewPoint(CoordFromRaw(0), CoordFromRaw(0)),
		NewPoint(CoordFromRaw(7439101574), CoordFromRaw(0)),
		NewPoint(CoordFromRaw(3719550787), CoordFromRaw(6442450944)),
		"genesis_owner",
	)
}
