// Package utxo manages the triangle UTXO set: a primary hash-keyed triangle
// map plus a derived address-balance index, and the deterministic
// per-transaction state transition that keeps both consistent.
package utxo

import "github.com/TrinityChain/TrinityChain/pkg/types"

// Set is the interface for triangle UTXO storage. internal/utxo.Store and
// any staged scratch copy satisfy it; it also satisfies tx.UTXOLookup.
type Set interface {
	Get(hash types.Hash) (types.Triangle, bool)
	Put(hash types.Hash, tri types.Triangle) error
	Delete(hash types.Hash) error
	Has(hash types.Hash) (bool, error)
	// ForEach iterates every UTXO. Return a non-nil error from fn to stop
	// iteration early and propagate that error.
	ForEach(fn func(hash types.Hash, tri types.Triangle) error) error
}
