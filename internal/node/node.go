// Package node provides a reusable blockchain node that can be embedded
// in any binary (daemon, wallet, etc.).
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/TrinityChain/TrinityChain/config"
	"github.com/TrinityChain/TrinityChain/internal/chain"
	"github.com/TrinityChain/TrinityChain/internal/consensus"
	klog "github.com/TrinityChain/TrinityChain/internal/log"
	"github.com/TrinityChain/TrinityChain/internal/mempool"
	"github.com/TrinityChain/TrinityChain/internal/miner"
	"github.com/TrinityChain/TrinityChain/internal/p2p"
	"github.com/TrinityChain/TrinityChain/internal/rpc"
	"github.com/TrinityChain/TrinityChain/internal/storage"
	"github.com/TrinityChain/TrinityChain/internal/utxo"
	"github.com/TrinityChain/TrinityChain/pkg/block"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized blockchain node.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	// Core
	db     storage.DB
	engine consensus.Engine
	ch     *chain.Chain
	pool   *mempool.Pool

	// Networking
	p2pNode *p2p.Node
	syncer  *p2p.Syncer

	// RPC
	rpcServer *rpc.Server

	// Mining
	minerLoop *miner.Loop

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	syncing chan struct{} // buffered(1): held while a startup/catch-up sync is in flight
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, genesis, storage, consensus, chain, mempool, P2P, RPC) but
// does NOT start background goroutines (mining, sync). Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Logger ───────────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/trinitychain.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	// ── 2. Genesis ──────────────────────────────────────────────────
	genesis := config.GenesisFor(cfg.Network)

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Uint64("initial_difficulty", genesis.Protocol.InitialDifficulty).
		Int64("target_block_time_ms", genesis.Protocol.TargetBlockTimeMs).
		Msg("Starting TrinityChain node")

	// ── 3. Storage (blocks and UTXOs get disjoint namespaces within one
	// Badger handle, via PrefixDB, so a UTXO key and a block key can never
	// collide even if both subsystems ever reuse a short internal prefix) ──
	db, err := storage.NewBadger(cfg.ChainDataDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.ChainDataDir(), err)
	}
	utxoStore := utxo.NewStore(storage.NewPrefixDB(db, []byte("utxo/")))
	chainDB := storage.NewPrefixDB(db, []byte("chain/"))
	p2pDB := storage.NewPrefixDB(db, []byte("p2p/"))
	logger.Info().Str("path", cfg.ChainDataDir()).Msg("Database opened")

	// ── 4. Consensus engine ──────────────────────────────────────────
	engine, err := createEngine(genesis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create consensus engine: %w", err)
	}

	// ── 5. Mempool ────────────────────────────────────────────────────
	pool := mempool.New()

	// ── 6. Chain (auto-recovers tip, or awaits InitFromGenesis) ──────
	ch, err := chain.New(chainDB, utxoStore, engine, pool)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create chain: %w", err)
	}

	if ch.State().IsGenesis() {
		gen := &chain.GenesisConfig{
			Beneficiary:   genesis.Beneficiary,
			InitialSupply: genesis.InitialSupply,
			TimestampMs:   genesis.Timestamp,
		}
		if err := ch.InitFromGenesis(gen); err != nil {
			db.Close()
			return nil, fmt.Errorf("init from genesis: %w", err)
		}
		logger.Info().Msg("Chain initialized from genesis")
	} else {
		logger.Info().
			Uint64("height", ch.Height()).
			Str("tip", shortHash(ch.TipHash())).
			Msg("Chain resumed from database")
	}

	ctx, cancel := context.WithCancel(context.Background())

	n := &Node{
		cfg:     cfg,
		genesis: genesis,
		logger:  logger,
		db:      db,
		engine:  engine,
		ch:      ch,
		pool:    pool,
		ctx:     ctx,
		cancel:  cancel,
		syncing: make(chan struct{}, 1),
	}

	// ── 7. P2P ────────────────────────────────────────────────────────
	if cfg.P2P.Enabled {
		p2pNode := p2p.New(p2p.Config{
			ListenAddr: cfg.P2P.ListenAddr,
			Port:       cfg.P2P.Port,
			Seeds:      cfg.P2P.Seeds,
			MaxPeers:   cfg.P2P.MaxPeers,
			NoDiscover: cfg.P2P.NoDiscover,
			DB:         p2pDB,
			DHTServer:  cfg.P2P.DHTServer,
			NetworkID:  genesis.ChainID,
			DataDir:    cfg.ChainDataDir(),
		})

		genesisHash, err := genesis.Hash()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("hash genesis: %w", err)
		}
		p2pNode.SetGenesisHash(genesisHash)
		p2pNode.SetHeightFn(ch.Height)

		p2pNode.SetBlockHandler(n.handleGossipBlock)
		p2pNode.SetTxHandler(n.handleGossipTx)
		p2pNode.SetPeerConnectedHandler(n.triggerSync)

		if err := p2pNode.Start(); err != nil {
			db.Close()
			return nil, fmt.Errorf("start P2P: %w", err)
		}

		logger.Info().
			Str("id", p2pNode.ID().String()).
			Int("port", cfg.P2P.Port).
			Bool("discovery", !cfg.P2P.NoDiscover).
			Msg("P2P node started")

		if cfg.P2P.ClearBans {
			for _, rec := range p2pNode.BanManager.BanList() {
				if id, err := peer.Decode(rec.ID); err == nil {
					p2pNode.BanManager.Unban(id)
				}
			}
			logger.Info().Msg("Cleared all peer bans")
		}

		syncer := p2p.NewSyncer(p2pNode)
		syncer.RegisterHandler(func(fromHeight uint64, max uint32) []*block.Block {
			var blocks []*block.Block
			for h := fromHeight; h < fromHeight+uint64(max); h++ {
				blk, err := ch.GetBlockByHeight(h)
				if err != nil {
					break
				}
				blocks = append(blocks, blk)
			}
			return blocks
		})
		syncer.RegisterHeightHandler(func() (uint64, string) {
			return ch.Height(), ch.TipHash().String()
		})
		logger.Info().Msg("Chain sync protocol registered")

		n.p2pNode = p2pNode
		n.syncer = syncer
	} else {
		logger.Warn().Msg("P2P disabled by config; node will run offline")
	}

	// ── 8. Mining (constructed whenever a coinbase is configured, even
	//      if not started immediately — start_mining/stop_mining RPC
	//      methods toggle it at runtime) ────────────────────────────
	if cfg.Mining.Coinbase != "" {
		coinbaseAddr, err := resolveCoinbase(cfg.Mining.Coinbase)
		if err != nil {
			n.Stop()
			return nil, fmt.Errorf("resolve coinbase: %w", err)
		}
		m := miner.New(ch, engine, pool, coinbaseAddr, miner.DefaultMaxBlockTxs)
		n.minerLoop = miner.NewLoop(m, n.applyMinedBlock)
		logger.Info().
			Str("coinbase", string(coinbaseAddr)).
			Msg("Miner ready")
	} else if cfg.Mining.Enabled {
		n.Stop()
		return nil, fmt.Errorf("mining.enabled requires mining.coinbase")
	}

	// ── 9. RPC ────────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		var peers rpc.PeerCounter
		if n.p2pNode != nil {
			peers = n.p2pNode
		}
		rpcServer := rpc.New(rpcAddr, ch, pool, peers, n.minerLoop, rpc.Config{
			AllowedIPs:  cfg.RPC.AllowedIPs,
			CORSOrigins: cfg.RPC.CORSOrigins,
		})
		if err := rpcServer.Start(); err != nil {
			n.Stop()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		n.rpcServer = rpcServer
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// Start launches background goroutines: startup sync, periodic sync, and
// (if configured) continuous mining.
func (n *Node) Start() error {
	if n.p2pNode != nil && n.syncer != nil {
		n.runStartupSync()
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runSyncLoop()
		}()
	}

	if n.cfg.Mining.Enabled {
		if n.minerLoop == nil {
			return fmt.Errorf("mining.enabled but no miner configured")
		}
		n.minerLoop.Start()
		n.logger.Info().Msg("Block production started")
	}

	n.logger.Info().
		Uint64("height", n.ch.Height()).
		Str("tip", shortHash(n.ch.TipHash())).
		Bool("mining", n.cfg.Mining.Enabled).
		Msg("Node started successfully")

	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()

	if n.minerLoop != nil {
		n.minerLoop.Stop()
	}
	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.p2pNode != nil {
		n.p2pNode.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Height returns the current chain height.
func (n *Node) Height() uint64 {
	return n.ch.Height()
}

func shortHash(h interface{ String() string }) string {
	s := h.String()
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}

// ── Gossip handlers ───────────────────────────────────────────────────

// handleGossipBlock applies a block received over the network. Linkage
// errors (height/prev-hash mismatch) just mean we're behind or racing a
// peer; anything else is a genuinely invalid block and costs the sender
// ban score.
func (n *Node) handleGossipBlock(from peer.ID, data []byte) {
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		n.logger.Debug().Err(err).Msg("Failed to unmarshal block")
		n.p2pNode.BanManager.RecordOffense(from, p2p.PenaltyInvalidBlock, "unmarshal: "+err.Error())
		return
	}

	if err := n.ch.ApplyBlock(&blk); err != nil {
		if errors.Is(err, chain.ErrBadHeight) || errors.Is(err, chain.ErrBadPrevHash) || errors.Is(err, chain.ErrNotGenesis) {
			n.triggerSync()
			return
		}
		n.logger.Debug().Err(err).Uint64("height", blk.Header.Height).Msg("Rejected block")
		n.p2pNode.BanManager.RecordOffense(from, p2p.PenaltyInvalidBlock, err.Error())
		return
	}

	n.logger.Info().
		Uint64("height", blk.Header.Height).
		Str("hash", shortHash(blk.Hash())).
		Int("txs", len(blk.Transactions)).
		Msg("Block received and applied")
}

func (n *Node) handleGossipTx(from peer.ID, data []byte) {
	var t tx.Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		n.logger.Debug().Err(err).Msg("Failed to unmarshal transaction")
		n.p2pNode.BanManager.RecordOffense(from, p2p.PenaltyInvalidTx, "unmarshal: "+err.Error())
		return
	}
	if err := n.pool.Add(&t); err != nil {
		n.logger.Debug().Err(err).Msg("Rejected transaction")
		n.p2pNode.BanManager.RecordOffense(from, p2p.PenaltyForTxError(err), err.Error())
		return
	}
	n.logger.Info().Str("tx", shortHash(t.Hash())).Msg("Transaction added to mempool")
}

// applyMinedBlock is the miner.Loop apply callback: commit our own block
// to the chain, then broadcast it.
func (n *Node) applyMinedBlock(v interface{}) error {
	blk, ok := v.(*block.Block)
	if !ok {
		return fmt.Errorf("unexpected mined value type %T", v)
	}
	if err := n.ch.ApplyBlock(blk); err != nil {
		return fmt.Errorf("apply mined block: %w", err)
	}
	if n.p2pNode != nil {
		if err := n.p2pNode.BroadcastBlock(blk); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to broadcast mined block")
		}
	}
	n.logger.Info().
		Uint64("height", blk.Header.Height).
		Str("hash", shortHash(blk.Hash())).
		Int("txs", len(blk.Transactions)).
		Msg("Block produced")
	return nil
}

// ── Sync ──────────────────────────────────────────────────────────────

// triggerSync requests an out-of-band startup sync, coalescing concurrent
// callers into a single in-flight attempt.
func (n *Node) triggerSync() {
	select {
	case n.syncing <- struct{}{}:
	default:
		return // A sync is already in flight.
	}
	go func() {
		defer func() { <-n.syncing }()
		n.runStartupSync()
	}()
}

func (n *Node) runSyncLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if len(n.p2pNode.PeerList()) == 0 {
				continue
			}
			n.runStartupSync()
		}
	}
}

// runStartupSync queries a handful of peers for their height, picks the
// tallest, and requests blocks from our tip onward. TrinityChain's chain
// has no fork choice (ApplyBlock rejects anything that doesn't extend the
// tip by exactly one), so unlike a fork-aware chain there is no common-
// ancestor search here: a peer whose chain has diverged from ours simply
// fails to sync past the divergence point, which is logged and left alone.
func (n *Node) runStartupSync() {
	if n.p2pNode == nil || n.syncer == nil {
		return
	}
	peers := n.p2pNode.PeerList()
	if len(peers) == 0 {
		return
	}

	// Query the peers that reported the highest height at handshake first —
	// with many peers, that means fewer round trips land on one still behind us.
	sort.Slice(peers, func(i, j int) bool { return peers[i].BestHeight > peers[j].BestHeight })

	var bestPeer peer.ID
	var bestHeight uint64
	limit := 3
	if len(peers) < limit {
		limit = len(peers)
	}
	for _, p := range peers[:limit] {
		reqCtx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
		resp, err := n.syncer.RequestHeight(reqCtx, p.ID)
		cancel()
		if err != nil {
			continue
		}
		if resp.Height > bestHeight {
			bestHeight = resp.Height
			bestPeer = p.ID
		}
	}

	localHeight := n.ch.Height()
	if bestHeight <= localHeight {
		return
	}

	total := bestHeight - localHeight
	n.logger.Info().
		Uint64("local", localHeight).
		Uint64("remote", bestHeight).
		Uint64("blocks", total).
		Msg("Syncing chain")

	syncStart := time.Now()

	for from := localHeight + 1; from <= bestHeight; from += 500 {
		max := uint32(500)
		if from+uint64(max)-1 > bestHeight {
			max = uint32(bestHeight - from + 1)
		}

		reqCtx, cancel := context.WithTimeout(n.ctx, 30*time.Second)
		blocks, err := n.syncer.RequestBlocks(reqCtx, bestPeer, from, max)
		cancel()
		if err != nil {
			n.logger.Warn().Err(err).Uint64("from", from).Msg("Sync request failed")
			return
		}

		for _, blk := range blocks {
			if err := n.ch.ApplyBlock(blk); err != nil {
				n.logger.Warn().Err(err).Uint64("height", blk.Header.Height).Msg("Sync block rejected")
				return
			}
		}

		synced := n.ch.Height() - localHeight
		n.logger.Info().
			Uint64("height", n.ch.Height()).
			Uint64("target", bestHeight).
			Str("progress", fmt.Sprintf("%.1f%%", float64(synced)/float64(total)*100)).
			Msg("Syncing")
	}

	n.logger.Info().
		Uint64("height", n.ch.Height()).
		Dur("elapsed", time.Since(syncStart)).
		Msg("Sync complete")
}
