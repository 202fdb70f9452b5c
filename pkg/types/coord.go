package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
)

// Coord is a signed Q32.32 fixed-point scalar: the low 32 bits are the
// fractional part, the high 32 bits (plus sign) are the integer part. All
// geometric and monetary arithmetic in TrinityChain uses this type instead
// of floating point, so that hashes, areas, balances and fees are
// byte-identical across implementations.
type Coord int64

// coordScale is 2^32, the fixed-point scale factor.
const coordScale = int64(1) << 32

// GeometricTolerance is the smallest representable positive Coord (raw bit
// value 1). Areas at or below this are treated as degenerate.
const GeometricTolerance Coord = 1

// MaxCoordinate bounds the magnitude of any vertex coordinate.
const MaxCoordinate Coord = Coord(^uint64(0) >> 1) // math.MaxInt64

// CoordFromInt converts a whole number into fixed-point representation.
func CoordFromInt(n int64) Coord {
	return Coord(n * coordScale)
}

// CoordFromRaw wraps a raw Q32.32 bit pattern directly.
func CoordFromRaw(raw int64) Coord {
	return Coord(raw)
}

// Raw returns the underlying Q32.32 bit pattern.
func (c Coord) Raw() int64 {
	return int64(c)
}

// IsZero reports whether c is exactly zero.
func (c Coord) IsZero() bool {
	return c == 0
}

// Sign returns -1, 0 or 1.
func (c Coord) Sign() int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

// Abs returns the absolute value.
func (c Coord) Abs() Coord {
	if c < 0 {
		return -c
	}
	return c
}

// Add returns c + other. Overflow is not expected within TrinityChain's
// supply bounds and is left to wrap, matching the deterministic behavior of
// a fixed-width integer on every implementation.
func (c Coord) Add(other Coord) Coord {
	return c + other
}

// Sub returns c - other.
func (c Coord) Sub(other Coord) Coord {
	return c - other
}

// Cmp returns -1, 0, or 1 comparing c to other.
func (c Coord) Cmp(other Coord) int {
	switch {
	case c < other:
		return -1
	case c > other:
		return 1
	default:
		return 0
	}
}

// Mul multiplies two fixed-point values exactly, using a 128-bit
// intermediate (via math/big) so the Q32.32 product never silently
// overflows a 64-bit accumulator before rescaling.
func (c Coord) Mul(other Coord) Coord {
	prod := new(big.Int).Mul(big.NewInt(int64(c)), big.NewInt(int64(other)))
	prod.Rsh(prod, 32)
	return Coord(prod.Int64())
}

// DivSmall divides c by a small positive integer divisor, returning the
// floored quotient and the raw-bit remainder. Used by subdivision to split
// a value three ways while keeping the sum exact via remainder absorption.
func (c Coord) DivSmall(divisor int64) (quotient Coord, remainder int64) {
	q := int64(c) / divisor
	r := int64(c) % divisor
	return Coord(q), r
}

// Bytes returns the little-endian 8-byte encoding of the raw bit pattern,
// used in canonical hashing and serialization.
func (c Coord) Bytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(c))
	return b
}

// String renders a human-readable decimal approximation for logs; never
// used in any hash, signature, or consensus comparison.
func (c Coord) String() string {
	whole := int64(c) / coordScale
	frac := int64(c) % coordScale
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%010d", whole, frac*1e9/coordScale)
}

// MarshalJSON encodes the exact raw bit pattern so round-tripping never
// loses precision to a float64 intermediate.
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(c))
}

// UnmarshalJSON decodes a raw bit pattern.
func (c *Coord) UnmarshalJSON(data []byte) error {
	var raw int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Coord(raw)
	return nil
}
