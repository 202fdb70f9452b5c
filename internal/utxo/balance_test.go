package utxo

import (
	"testing"

	"github.com/TrinityChain/TrinityChain/internal/storage"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

func TestBalanceIndexAddSub(t *testing.T) {
	b := NewBalanceIndex()
	b.add("alice", types.CoordFromInt(100))
	b.add("alice", types.CoordFromInt(50))
	if got := b.Get("alice"); got != types.CoordFromInt(150) {
		t.Errorf("balance = %v, want 150", got)
	}

	b.sub("alice", types.CoordFromInt(40))
	if got := b.Get("alice"); got != types.CoordFromInt(110) {
		t.Errorf("balance = %v, want 110", got)
	}
}

func TestBalanceIndexUnknownAddressIsZero(t *testing.T) {
	b := NewBalanceIndex()
	if got := b.Get("nobody"); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
}

func TestBalanceIndexRebuild(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("alice", 1000))
	store.Put(types.Hash{0x02}, sampleUTXOTriangle("alice", 500))
	store.Put(types.Hash{0x03}, sampleUTXOTriangle("bob", 2000))

	b := NewBalanceIndex()
	if err := b.Rebuild(store); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if got := b.Get("alice"); got != types.CoordFromInt(1500) {
		t.Errorf("alice balance = %v, want 1500", got)
	}
	if got := b.Get("bob"); got != types.CoordFromInt(2000) {
		t.Errorf("bob balance = %v, want 2000", got)
	}
}

func TestBalanceIndexRebuildDiscardsStaleEntries(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("alice", 1000))

	b := NewBalanceIndex()
	b.add("ghost", types.CoordFromInt(999)) // Stale entry not backed by any UTXO.

	if err := b.Rebuild(store); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := b.Get("ghost"); got != 0 {
		t.Errorf("stale balance = %v, want 0 after rebuild", got)
	}
	if got := b.Get("alice"); got != types.CoordFromInt(1000) {
		t.Errorf("alice balance = %v, want 1000", got)
	}
}

func TestNewStateRebuildsFromExistingSet(t *testing.T) {
	store := NewStore(storage.NewMemory())
	store.Put(types.Hash{0x01}, sampleUTXOTriangle("alice", 1000))

	s, err := NewState(store)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if got := s.GetBalance("alice"); got != types.CoordFromInt(1000) {
		t.Errorf("balance = %v, want 1000 (rebuilt from preexisting UTXOs)", got)
	}
}
