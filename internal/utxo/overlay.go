package utxo

import "github.com/TrinityChain/TrinityChain/pkg/types"

// Overlay is an in-memory, copy-on-write layer over a base Set. Reads fall
// through to base unless the key has been overwritten or deleted in the
// overlay; writes never touch base until Commit replays them. This lets a
// block's transactions be validated and applied against a scratch view of
// the UTXO set, with the live store left untouched if any later
// transaction in the same block turns out invalid.
type Overlay struct {
	base    Set
	puts    map[types.Hash]types.Triangle
	deletes map[types.Hash]bool
}

// NewOverlay wraps base in a fresh scratch layer with no staged changes.
func NewOverlay(base Set) *Overlay {
	return &Overlay{
		base:    base,
		puts:    make(map[types.Hash]types.Triangle),
		deletes: make(map[types.Hash]bool),
	}
}

// Get checks the overlay first, then falls through to base.
func (o *Overlay) Get(hash types.Hash) (types.Triangle, bool) {
	if o.deletes[hash] {
		return types.Triangle{}, false
	}
	if tri, ok := o.puts[hash]; ok {
		return tri, true
	}
	return o.base.Get(hash)
}

// Put stages a triangle in the overlay only.
func (o *Overlay) Put(hash types.Hash, tri types.Triangle) error {
	delete(o.deletes, hash)
	o.puts[hash] = tri
	return nil
}

// Delete stages a removal in the overlay only, shadowing any base entry.
func (o *Overlay) Delete(hash types.Hash) error {
	delete(o.puts, hash)
	o.deletes[hash] = true
	return nil
}

// Has checks the overlay first, then falls through to base.
func (o *Overlay) Has(hash types.Hash) (bool, error) {
	if o.deletes[hash] {
		return false, nil
	}
	if _, ok := o.puts[hash]; ok {
		return true, nil
	}
	return o.base.Has(hash)
}

// ForEach visits every UTXO visible through the overlay: base entries not
// shadowed by a staged delete or overwrite, plus every staged put.
func (o *Overlay) ForEach(fn func(hash types.Hash, tri types.Triangle) error) error {
	err := o.base.ForEach(func(hash types.Hash, tri types.Triangle) error {
		if o.deletes[hash] {
			return nil
		}
		if _, overwritten := o.puts[hash]; overwritten {
			return nil
		}
		return fn(hash, tri)
	})
	if err != nil {
		return err
	}
	for hash, tri := range o.puts {
		if err := fn(hash, tri); err != nil {
			return err
		}
	}
	return nil
}

// Commit replays every staged change into base. Put and Delete already
// keep the two maps disjoint, so a hash is never both put and deleted here.
func (o *Overlay) Commit() error {
	for hash := range o.deletes {
		if err := o.base.Delete(hash); err != nil {
			return err
		}
	}
	for hash, tri := range o.puts {
		if err := o.base.Put(hash, tri); err != nil {
			return err
		}
	}
	return nil
}
