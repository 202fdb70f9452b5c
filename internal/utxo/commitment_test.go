package utxo

import (
	"testing"

	"github.com/TrinityChain/TrinityChain/internal/storage"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

func sampleUTXOTriangle(owner types.Address, value int64) types.Triangle {
	return types.NewTriangle(
		types.NewPoint(types.CoordFromInt(0), types.CoordFromInt(0)),
		types.NewPoint(types.CoordFromInt(10), types.CoordFromInt(0)),
		types.NewPoint(types.CoordFromInt(0), types.CoordFromInt(10)),
		owner,
	).WithValue(types.CoordFromInt(value))
}

func TestCommitment_Empty(t *testing.T) {
	store := NewStore(storage.NewMemory())

	root, err := Commitment(store)
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if !root.IsZero() {
		t.Error("empty store commitment should be zero hash")
	}
}

func TestCommitment_SingleUTXO(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("addr1", 1000))

	root, err := Commitment(store)
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if root.IsZero() {
		t.Error("single UTXO commitment should not be zero")
	}
}

func TestCommitment_Deterministic(t *testing.T) {
	makeStore := func() *Store {
		s := NewStore(storage.NewMemory())
		s.Put(types.Hash{0x01}, sampleUTXOTriangle("addr1", 1000))
		s.Put(types.Hash{0x02}, sampleUTXOTriangle("addr2", 2000))
		return s
	}

	root1, _ := Commitment(makeStore())
	root2, _ := Commitment(makeStore())
	if root1 != root2 {
		t.Error("commitment should be deterministic")
	}
}

func TestCommitment_ChangesOnModification(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("addr1", 1000))

	root1, _ := Commitment(store)

	store.Put(types.Hash{0x02}, sampleUTXOTriangle("addr2", 2000))
	root2, _ := Commitment(store)

	if root1 == root2 {
		t.Error("commitment should change after adding UTXO")
	}
}

func TestCommitment_ChangesOnDelete(t *testing.T) {
	store := NewStore(storage.NewMemory())

	h1 := types.Hash{0x01}
	h2 := types.Hash{0x02}
	store.Put(h1, sampleUTXOTriangle("addr1", 1000))
	store.Put(h2, sampleUTXOTriangle("addr2", 2000))

	root1, _ := Commitment(store)
	store.Delete(h2)
	root2, _ := Commitment(store)

	if root1 == root2 {
		t.Error("commitment should change after deleting UTXO")
	}
}

func TestCommitment_OrderIndependent(t *testing.T) {
	h1 := types.Hash{0x01}
	h2 := types.Hash{0x02}
	t1 := sampleUTXOTriangle("addr1", 1000)
	t2 := sampleUTXOTriangle("addr2", 2000)

	s1 := NewStore(storage.NewMemory())
	s1.Put(h1, t1)
	s1.Put(h2, t2)
	root1, _ := Commitment(s1)

	s2 := NewStore(storage.NewMemory())
	s2.Put(h2, t2)
	s2.Put(h1, t1)
	root2, _ := Commitment(s2)

	if root1 != root2 {
		t.Error("commitment should be independent of insertion order")
	}
}

func TestForEach(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("addr1", 1000))
	store.Put(types.Hash{0x02}, sampleUTXOTriangle("addr2", 2000))

	var count int
	var total types.Coord
	err := store.ForEach(func(_ types.Hash, tri types.Triangle) error {
		count++
		total = total.Add(tri.EffectiveValue())
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if total != types.CoordFromInt(3000) {
		t.Errorf("total = %v, want 3000", total)
	}
}
