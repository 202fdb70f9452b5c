// Package mempool manages pending transactions waiting for block inclusion:
// a bounded, fee-ordered pool with a per-sender quota and lowest-fee
// eviction.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/TrinityChain/TrinityChain/internal/utxo"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Default pool bounds.
const (
	MaxPoolSize  = 10_000
	MaxPerSender = 100
)

// Mempool errors.
var (
	ErrCoinbaseNotAllowed  = errors.New("coinbase transactions are not accepted by the mempool")
	ErrAlreadyExists       = errors.New("transaction already in mempool")
	ErrSenderQuotaExceeded = errors.New("sender exceeds per-sender mempool quota")
	ErrPoolFull            = errors.New("mempool is full")
)

// entry wraps a resident transaction with its ordering key.
type entry struct {
	tx      *tx.Transaction
	txHash  types.Hash
	sender  types.Address
	feeArea types.Coord
}

// Pool holds unconfirmed transactions, admitted by stateless validation and
// ordered by fee_area for block assembly.
type Pool struct {
	mu           sync.RWMutex
	txs          map[types.Hash]*entry
	bySender     map[types.Address]int
	maxSize      int
	maxPerSender int
	policy       *Policy
}

// New creates an empty mempool with TrinityChain's default bounds.
func New() *Pool {
	return &Pool{
		txs:          make(map[types.Hash]*entry),
		bySender:     make(map[types.Address]int),
		maxSize:      MaxPoolSize,
		maxPerSender: MaxPerSender,
		policy:       DefaultPolicy(),
	}
}

// senderOf returns the address responsible for a non-Coinbase transaction's
// per-sender quota: the Sender field for Transfer, the Owner field for
// Subdivision.
func senderOf(transaction *tx.Transaction) types.Address {
	switch transaction.Kind {
	case tx.KindTransfer:
		return transaction.Transfer.Sender
	case tx.KindSubdivision:
		return transaction.Subdivision.Owner
	default:
		return ""
	}
}

// Add runs policy and stateless validation (including signature
// verification) and admits transaction. Coinbase is always rejected — it
// has no mempool identity, only ever appearing as transactions[0] of a
// block a miner drafts directly. If the pool is at capacity, the new
// transaction evicts the current lowest-fee_area resident only if it pays
// strictly more.
func (p *Pool) Add(transaction *tx.Transaction) error {
	if transaction.Kind == tx.KindCoinbase {
		return ErrCoinbaseNotAllowed
	}
	if err := p.policy.Check(transaction); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := transaction.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	txHash := transaction.Hash()
	sender := senderOf(transaction)
	feeArea := transaction.FeeArea()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[txHash]; exists {
		return ErrAlreadyExists
	}

	if p.maxPerSender > 0 && p.bySender[sender] >= p.maxPerSender {
		return fmt.Errorf("%w: %s already has %d resident transactions", ErrSenderQuotaExceeded, sender, p.maxPerSender)
	}

	if len(p.txs) >= p.maxSize {
		lowestHash, lowestFee, ok := p.lowestFeeLocked()
		if !ok || feeArea.Cmp(lowestFee) <= 0 {
			return ErrPoolFull
		}
		p.removeLocked(lowestHash)
	}

	p.txs[txHash] = &entry{tx: transaction, txHash: txHash, sender: sender, feeArea: feeArea}
	p.bySender[sender]++
	return nil
}

// lowestFeeLocked lives in eviction.go, alongside Evict.

func (p *Pool) removeLocked(txHash types.Hash) {
	e, exists := p.txs[txHash]
	if !exists {
		return
	}
	delete(p.txs, txHash)
	p.bySender[e.sender]--
	if p.bySender[e.sender] <= 0 {
		delete(p.bySender, e.sender)
	}
}

// Remove drops txHash from the pool, if present.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

// RemoveMany drops every hash in hashes, if present. Used to clear a
// just-committed block's transactions out of the pool.
func (p *Pool) RemoveMany(hashes []types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h)
	}
}

// Has reports whether txHash is resident.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get returns the resident transaction for txHash, or nil.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of resident transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Hashes returns the hashes of every resident transaction, unordered.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	hashes := make([]types.Hash, 0, len(p.txs))
	for h := range p.txs {
		hashes = append(hashes, h)
	}
	return hashes
}

// GetByFee returns up to limit resident transactions ordered by fee_area
// descending, ties broken by ascending tx hash so two nodes with the same
// pool contents always draft blocks in the same order. A negative or
// too-large limit returns every resident transaction.
func (p *Pool) GetByFee(limit int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].feeArea.Cmp(entries[j].feeArea); c != 0 {
			return c > 0
		}
		return hashLess(entries[i].txHash, entries[j].txHash)
	})

	if limit < 0 || limit > len(entries) {
		limit = len(entries)
	}
	result := make([]*tx.Transaction, limit)
	for i := 0; i < limit; i++ {
		result[i] = entries[i].tx
	}
	return result
}

// Prune drops every resident transaction whose stateful validation against
// state now fails — most commonly because its input or parent was spent by
// a just-confirmed block. Returns the dropped hashes.
func (p *Pool) Prune(state utxo.Set) []types.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dropped []types.Hash
	for h, e := range p.txs {
		if err := e.tx.ValidateStateful(state); err != nil {
			dropped = append(dropped, h)
		}
	}
	for _, h := range dropped {
		p.removeLocked(h)
	}
	return dropped
}

func hashLess(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
