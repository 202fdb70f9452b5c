package mempool

import (
	"sort"

	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// lowestFeeLocked returns the hash and fee_area of the pool's lowest-paying
// resident. Must be called with p.mu held. ok is false only when the pool
// is empty.
func (p *Pool) lowestFeeLocked() (types.Hash, types.Coord, bool) {
	var lowestHash types.Hash
	var lowestFee types.Coord
	found := false
	for h, e := range p.txs {
		if !found || e.feeArea.Cmp(lowestFee) < 0 {
			lowestHash = h
			lowestFee = e.feeArea
			found = true
		}
	}
	return lowestHash, lowestFee, found
}

// Evict trims the pool down to maxSize by removing the lowest fee_area
// residents first. Add() already evicts one-for-one on admission; Evict is
// for shrinking the pool after maxSize itself is lowered.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.txs) <= p.maxSize {
		return 0
	}

	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].feeArea.Cmp(entries[j].feeArea); c != 0 {
			return c < 0
		}
		return hashLess(entries[i].txHash, entries[j].txHash)
	})

	evicted := 0
	for len(p.txs) > p.maxSize && evicted < len(entries) {
		p.removeLocked(entries[evicted].txHash)
		evicted++
	}
	return evicted
}
