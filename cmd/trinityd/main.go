// TrinityChain full node daemon.
//
// Usage:
//
//	trinityd [--mine --coinbase=<address>]  Run node
//	trinityd --help                         Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/TrinityChain/TrinityChain/config"
	klog "github.com/TrinityChain/TrinityChain/internal/log"
	"github.com/TrinityChain/TrinityChain/internal/node"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing node: %v\n", err)
		os.Exit(1)
	}

	logger := klog.WithComponent("main")

	if err := n.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start node")
	}

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("rpc_addr", n.RPCAddr()).
		Uint64("height", n.Height()).
		Msg("TrinityChain node running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down")
	n.Stop()
}
