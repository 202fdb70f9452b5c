package consensus

import "github.com/TrinityChain/TrinityChain/pkg/block"

// Engine is the interface a block-application pipeline drives: prepare a
// draft header's difficulty, seal it by mining, and verify a received
// header against the stated difficulty.
type Engine interface {
	VerifyHeader(header *block.Header) error
	Prepare(header *block.Header) error
	Seal(blk *block.Block) error
}
