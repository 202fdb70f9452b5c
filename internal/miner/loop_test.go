package miner

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TrinityChain/TrinityChain/pkg/block"
	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/types"
)

// countingChainState advances its own tip each time apply is called, so
// successive produced blocks have distinct, increasing heights — without
// this the loop would mine the same height forever in a test.
type countingChainState struct {
	height  atomic.Uint64
	tipHash atomic.Value
}

func newCountingChainState() *countingChainState {
	c := &countingChainState{}
	c.tipHash.Store(types.Hash{})
	return c
}

func (c *countingChainState) Height() uint64       { return c.height.Load() }
func (c *countingChainState) TipHash() types.Hash  { return c.tipHash.Load().(types.Hash) }
func (c *countingChainState) TipTimestamp() uint64 { return c.height.Load() * 1000 }

func (c *countingChainState) advance(h types.Hash) {
	c.height.Add(1)
	c.tipHash.Store(h)
}

func TestLoopStartStopMinesBlocks(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	chain := newCountingChainState()

	m := New(chain, testEngine(t), nil, addr, 0)
	loop := NewLoop(m, func(raw interface{}) error {
		blk := raw.(*block.Block)
		chain.advance(blk.Hash())
		return nil
	})

	loop.Start()
	deadline := time.After(2 * time.Second)
	for chain.Height() < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for 3 blocks")
		case <-time.After(time.Millisecond):
		}
	}
	loop.Stop()

	if loop.BlocksMined() < 3 {
		t.Errorf("BlocksMined() = %d, want >= 3", loop.BlocksMined())
	}
	if loop.Running() {
		t.Error("loop should report not running after Stop")
	}
}

func TestLoopStartIsIdempotent(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	chain := newCountingChainState()

	m := New(chain, testEngine(t), nil, addr, 0)
	loop := NewLoop(m, func(raw interface{}) error {
		chain.advance(raw.(*block.Block).Hash())
		return nil
	})

	loop.Start()
	loop.Start() // second call must not panic or spawn a duplicate goroutine
	if !loop.Running() {
		t.Error("loop should be running")
	}
	loop.Stop()
	loop.Stop() // second call must not panic
}

func TestLoopRecordsApplyErrors(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	chain := newCountingChainState()
	wantErr := errors.New("apply rejected")

	m := New(chain, testEngine(t), nil, addr, 0)
	loop := NewLoop(m, func(interface{}) error {
		return wantErr
	})

	loop.Start()
	deadline := time.After(2 * time.Second)
	for loop.LastError() == nil {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for apply error to be recorded")
		case <-time.After(time.Millisecond):
		}
	}
	loop.Stop()

	if !errors.Is(loop.LastError(), wantErr) {
		t.Errorf("LastError() = %v, want %v", loop.LastError(), wantErr)
	}
}
