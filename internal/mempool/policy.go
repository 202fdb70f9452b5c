package mempool

import (
	"fmt"

	"github.com/TrinityChain/TrinityChain/pkg/tx"
)

// DefaultMaxTxSize mirrors the consensus-level transaction size ceiling.
// A node may tighten this further; it may never loosen it, since a
// transaction rejected by Policy never reaches the (identical) consensus
// check in Validate.
const DefaultMaxTxSize = tx.MaxTransactionSize

// Policy defines node-local transaction acceptance rules, checked before
// the more expensive full validation so an oversized transaction is
// rejected cheaply.
type Policy struct {
	MaxTxSize int // Maximum serialized transaction size in bytes.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxTxSize: DefaultMaxTxSize,
	}
}

// Check validates a transaction against node-local policy rules. This is
// separate from consensus validation (pkg/tx.Validate) — policy rules can
// vary per node, whereas Validate's rules are the same for every node or
// blocks disagree.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size, err := transaction.Size()
	if err != nil {
		return fmt.Errorf("compute size: %w", err)
	}
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return nil
}
