package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/TrinityChain/TrinityChain/internal/consensus"
	"github.com/TrinityChain/TrinityChain/internal/storage"
	"github.com/TrinityChain/TrinityChain/internal/utxo"
	"github.com/TrinityChain/TrinityChain/pkg/block"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// Pipeline errors, one per spec.md §4.7 step.
var (
	ErrNotGenesis          = errors.New("genesis already applied or chain not empty")
	ErrBadHeight           = errors.New("block height is not the chain tip height plus one")
	ErrBadPrevHash         = errors.New("block previous_hash does not match the chain tip")
	ErrFirstTxNotCoinbase  = errors.New("block transactions[0] must be Coinbase")
	ErrExtraCoinbase       = errors.New("only transactions[0] may be Coinbase")
	ErrDoubleSpendInBlock  = errors.New("block references the same input more than once")
	ErrMerkleMismatch      = errors.New("recomputed merkle root does not match block header")
)

// MempoolHandle is the subset of *mempool.Pool the chain drives on commit:
// dropping the transactions a block just confirmed, and re-validating
// whatever residents remain against the new state.
type MempoolHandle interface {
	RemoveMany(hashes []types.Hash)
	Prune(state utxo.Set) []types.Hash
}

// Chain is the authoritative blockchain state machine: block storage, the
// UTXO set and its derived balance index, and the consensus engine that
// seals and verifies headers. Every mutation runs through ApplyBlock or
// InitFromGenesis, serialized by mu — spec.md §5 describes this as a
// single writer owning the live state while readers take snapshots.
type Chain struct {
	mu     sync.Mutex
	state  State
	blocks *BlockStore
	utxos  *utxo.State
	engine consensus.Engine
	pool   MempoolHandle
}

// New recovers a chain from its block store, or returns an empty chain
// awaiting InitFromGenesis if the store has no tip yet.
func New(db storage.DB, utxoSet utxo.Set, engine consensus.Engine, pool MempoolHandle) (*Chain, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if utxoSet == nil {
		return nil, fmt.Errorf("utxo set is nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("consensus engine is nil")
	}

	blocks := NewBlockStore(db)
	tipHash, height, err := blocks.GetTip()
	if err != nil {
		return nil, fmt.Errorf("recover tip: %w", err)
	}

	utxoState, err := utxo.NewState(utxoSet)
	if err != nil {
		return nil, fmt.Errorf("rebuild balance index: %w", err)
	}

	state := State{TipHash: tipHash, Height: height}
	if !state.IsGenesis() {
		tipBlk, err := blocks.GetBlock(tipHash)
		if err != nil {
			return nil, fmt.Errorf("load tip block: %w", err)
		}
		state.TipTimestamp = tipBlk.Header.Timestamp
	}

	return &Chain{
		state:  state,
		blocks: blocks,
		utxos:  utxoState,
		engine: engine,
		pool:   pool,
	}, nil
}

// InitFromGenesis builds, mines, and applies the one genesis block a chain
// may ever have (spec.md §4.8). It fails if the chain already has blocks.
func (c *Chain) InitFromGenesis(gen *GenesisConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsGenesis() {
		return fmt.Errorf("%w: chain already at height %d", ErrNotGenesis, c.state.Height)
	}

	blk, err := BuildGenesisBlock(c.engine, gen)
	if err != nil {
		return fmt.Errorf("build genesis: %w", err)
	}

	if err := c.utxos.ApplyGenesisCoinbase(blk.Transactions[0]); err != nil {
		return fmt.Errorf("apply genesis coinbase: %w", err)
	}

	if err := c.blocks.PutBlock(blk); err != nil {
		return fmt.Errorf("store genesis block: %w", err)
	}

	hash := blk.Hash()
	if err := c.blocks.SetTip(hash, 0); err != nil {
		return fmt.Errorf("set genesis tip: %w", err)
	}

	c.state = State{Height: 0, TipHash: hash, TipTimestamp: blk.Header.Timestamp}
	return nil
}

// ApplyBlock runs the full §4.7 pipeline: Linkage, PoW, in-block
// double-spend check, staged-state transaction validation, Merkle root
// check, and Commit. Either every step succeeds and the new block becomes
// the tip, or ApplyBlock returns an error and nothing — UTXO set, balance
// index, tip, and mempool — is changed.
func (c *Chain) ApplyBlock(blk *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := blk.Validate(); err != nil {
		return fmt.Errorf("block structure: %w", err)
	}
	if err := c.checkLinkage(blk); err != nil {
		return err
	}
	if err := c.verifyProofOfWork(blk); err != nil {
		return err
	}
	if err := checkNoDoubleSpend(blk); err != nil {
		return err
	}

	overlay := utxo.NewOverlay(c.utxos.UTXOs)
	scratch, err := utxo.NewState(overlay)
	if err != nil {
		return fmt.Errorf("stage scratch state: %w", err)
	}
	if err := applyStaged(scratch, blk); err != nil {
		return err
	}

	if err := checkMerkleRoot(blk); err != nil {
		return err
	}

	return c.commit(blk, overlay, scratch)
}

// checkLinkage implements step 1: the block must extend the current tip
// by exactly one height with a matching previous hash. TrinityChain has no
// fork choice — a block whose parent is not the tip is simply rejected,
// never staged as an alternative branch.
func (c *Chain) checkLinkage(blk *block.Block) error {
	if c.state.IsGenesis() {
		return fmt.Errorf("%w: use InitFromGenesis for the first block", ErrNotGenesis)
	}
	if blk.Header.Height != c.state.Height+1 {
		return fmt.Errorf("%w: block height %d, want %d", ErrBadHeight, blk.Header.Height, c.state.Height+1)
	}
	if blk.Header.PrevHash != c.state.TipHash {
		return fmt.Errorf("%w: block previous_hash %s, want %s", ErrBadPrevHash, blk.Header.PrevHash, c.state.TipHash)
	}
	return nil
}

// verifyProofOfWork implements step 2: the header hash must meet the
// stated difficulty, and — for a PoW engine — that stated difficulty must
// itself match what retargeting expects at this height.
func (c *Chain) verifyProofOfWork(blk *block.Block) error {
	if err := c.engine.VerifyHeader(blk.Header); err != nil {
		return err
	}
	pow, ok := c.engine.(*consensus.PoW)
	if !ok {
		return nil
	}
	prevBlk, err := c.blocks.GetBlockByHeight(blk.Header.Height - 1)
	if err != nil {
		return fmt.Errorf("load parent for difficulty check: %w", err)
	}
	return pow.VerifyDifficulty(blk.Header, prevBlk.Header.Difficulty, c.getBlockTimestamp)
}

// checkNoDoubleSpend implements step 3: the referenced input_hash/parent_hash
// values across all transactions in the block form a strict set.
func checkNoDoubleSpend(blk *block.Block) error {
	seen := make(map[types.Hash]bool, len(blk.Transactions))
	for _, t := range blk.Transactions {
		ref, ok := referencedUTXO(t)
		if !ok {
			continue
		}
		if seen[ref] {
			return fmt.Errorf("%w: %s referenced twice", ErrDoubleSpendInBlock, ref)
		}
		seen[ref] = true
	}
	return nil
}

func referencedUTXO(t *tx.Transaction) (types.Hash, bool) {
	switch t.Kind {
	case tx.KindTransfer:
		return t.Transfer.InputHash, true
	case tx.KindSubdivision:
		return t.Subdivision.ParentHash, true
	default:
		return types.Hash{}, false
	}
}

// applyStaged implements step 4: transactions[0] must be Coinbase and no
// other transaction may be; each is then stateful-validated and applied
// against scratch in block order, aborting the whole block on the first
// failure.
func applyStaged(scratch *utxo.State, blk *block.Block) error {
	for i, t := range blk.Transactions {
		isCoinbase := t.Kind == tx.KindCoinbase
		if i == 0 && !isCoinbase {
			return ErrFirstTxNotCoinbase
		}
		if i != 0 && isCoinbase {
			return ErrExtraCoinbase
		}
		if err := scratch.Apply(t, blk.Header.Height); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return nil
}

// checkMerkleRoot implements step 5.
func checkMerkleRoot(blk *block.Block) error {
	recomputed := block.ComputeMerkleRoot(blk.TxHashes())
	if recomputed != blk.Header.MerkleRoot {
		return fmt.Errorf("%w: got %s, want %s", ErrMerkleMismatch, recomputed, blk.Header.MerkleRoot)
	}
	return nil
}

// commit implements step 6: persist the block, replace the live UTXO
// state with the scratch copy that step 4 built, advance the tip, and
// drop the block's transactions (plus any now-stale residents) from the
// mempool.
func (c *Chain) commit(blk *block.Block, overlay *utxo.Overlay, scratch *utxo.State) error {
	if err := c.blocks.PutBlock(blk); err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	if err := overlay.Commit(); err != nil {
		return fmt.Errorf("commit staged utxo changes: %w", err)
	}
	c.utxos.Balances = scratch.Balances

	hash := blk.Hash()
	if err := c.blocks.SetTip(hash, blk.Header.Height); err != nil {
		return fmt.Errorf("set tip: %w", err)
	}
	c.state = State{Height: blk.Header.Height, TipHash: hash, TipTimestamp: blk.Header.Timestamp}

	if c.pool != nil {
		c.pool.RemoveMany(blk.TxHashes())
		c.pool.Prune(c.utxos.UTXOs)
	}
	return nil
}

// State returns a copy of the current chain tip state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Height returns the current chain height.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Height
}

// TipHash returns the hash of the current chain tip.
func (c *Chain) TipHash() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.TipHash
}

// TipTimestamp returns the current tip block's timestamp. Part of the
// miner.ChainState contract.
func (c *Chain) TipTimestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.TipTimestamp
}

// GetBalance returns addr's current balance.
func (c *Chain) GetBalance(addr types.Address) types.Coord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxos.GetBalance(addr)
}

// GetBlock retrieves a block by its hash.
func (c *Chain) GetBlock(hash types.Hash) (*block.Block, error) {
	return c.blocks.GetBlock(hash)
}

// GetBlockByHeight retrieves a block by its height.
func (c *Chain) GetBlockByHeight(height uint64) (*block.Block, error) {
	return c.blocks.GetBlockByHeight(height)
}

// GetTransaction looks up a confirmed transaction by hash via the tx index.
func (c *Chain) GetTransaction(hash types.Hash) (*tx.Transaction, error) {
	_, blockHash, err := c.blocks.GetTxLocation(hash)
	if err != nil {
		return nil, err
	}
	blk, err := c.blocks.GetBlock(blockHash)
	if err != nil {
		return nil, fmt.Errorf("load block for tx: %w", err)
	}
	for _, t := range blk.Transactions {
		if t.Hash() == hash {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tx %s not found in block %s (index corrupt)", hash, blockHash)
}

// getBlockTimestamp returns the timestamp of the block at height, used by
// PoW difficulty verification and retargeting.
func (c *Chain) getBlockTimestamp(height uint64) (uint64, error) {
	blk, err := c.blocks.GetBlockByHeight(height)
	if err != nil {
		return 0, err
	}
	return blk.Header.Timestamp, nil
}

// ExpectedDifficultyAt computes the difficulty a block at height must carry,
// per the PoW engine's retargeting rule. Node wiring assigns this as the
// engine's DifficultyFn so the miner always drafts against the chain's own
// history rather than a stale snapshot.
func (c *Chain) ExpectedDifficultyAt(height uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	pow, ok := c.engine.(*consensus.PoW)
	if !ok {
		return 0
	}
	if height == 0 {
		return pow.InitialDifficulty
	}
	prevBlk, err := c.blocks.GetBlockByHeight(height - 1)
	if err != nil {
		return pow.InitialDifficulty
	}
	return pow.ExpectedDifficulty(height, prevBlk.Header.Difficulty, c.getBlockTimestamp)
}
