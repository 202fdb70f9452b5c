package types

import "testing"

func TestPointMidpoint(t *testing.T) {
	p1 := NewPoint(CoordFromInt(0), CoordFromInt(0))
	p2 := NewPoint(CoordFromInt(10), CoordFromInt(20))
	mid := p1.Midpoint(p2)

	if mid.X != CoordFromInt(5) || mid.Y != CoordFromInt(10) {
		t.Errorf("Midpoint = (%v, %v), want (5, 10)", mid.X, mid.Y)
	}
}

func TestPointHashStableAndDistinct(t *testing.T) {
	p1 := NewPoint(CoordFromInt(1), CoordFromInt(2))
	p2 := NewPoint(CoordFromInt(1), CoordFromInt(2))
	p3 := NewPoint(CoordFromInt(2), CoordFromInt(1))

	if p1.Hash() != p2.Hash() {
		t.Error("identical points must hash identically")
	}
	if p1.Hash() == p3.Hash() {
		t.Error("distinct points should not collide trivially")
	}
}

func TestPointEquals(t *testing.T) {
	p1 := NewPoint(CoordFromInt(3), CoordFromInt(4))
	p2 := NewPoint(CoordFromInt(3), CoordFromInt(4))
	p3 := NewPoint(CoordFromInt(3), CoordFromInt(5))

	if !p1.Equals(p2) {
		t.Error("p1 should equal p2")
	}
	if p1.Equals(p3) {
		t.Error("p1 should not equal p3")
	}
}
