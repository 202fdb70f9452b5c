package utxo

import (
	"fmt"
	"sync"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// BalanceIndex is the derived address→balance map: a pure function of the
// UTXO set, kept in sync incrementally by Apply and recomputable in full by
// Rebuild. It is never a source of truth on its own.
type BalanceIndex struct {
	mu       sync.RWMutex
	balances map[types.Address]types.Coord
}

// NewBalanceIndex returns an empty balance index.
func NewBalanceIndex() *BalanceIndex {
	return &BalanceIndex{balances: make(map[types.Address]types.Coord)}
}

// Get returns addr's balance, or zero if it owns nothing.
func (b *BalanceIndex) Get(addr types.Address) types.Coord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}

func (b *BalanceIndex) add(addr types.Address, delta types.Coord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = b.balances[addr].Add(delta)
}

func (b *BalanceIndex) sub(addr types.Address, delta types.Coord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = b.balances[addr].Sub(delta)
}

// Rebuild recomputes the balance map from scratch by summing every UTXO's
// effective value into its owner's entry, discarding any prior contents.
// Used after a snapshot load, where the UTXO set is trusted but the
// in-memory balance index is not.
func (b *BalanceIndex) Rebuild(set Set) error {
	fresh := make(map[types.Address]types.Coord)
	err := set.ForEach(func(_ types.Hash, tri types.Triangle) error {
		fresh[tri.Owner] = fresh[tri.Owner].Add(tri.EffectiveValue())
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild balances: %w", err)
	}

	b.mu.Lock()
	b.balances = fresh
	b.mu.Unlock()
	return nil
}
