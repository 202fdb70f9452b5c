// trinity-cli is a command-line client for interacting with a trinityd node.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/TrinityChain/TrinityChain/config"
	"github.com/TrinityChain/TrinityChain/internal/feeest"
	"github.com/TrinityChain/TrinityChain/internal/mempool"
	"github.com/TrinityChain/TrinityChain/internal/rpc"
	"github.com/TrinityChain/TrinityChain/internal/rpcclient"
	"github.com/TrinityChain/TrinityChain/internal/walletkit"
	"github.com/TrinityChain/TrinityChain/pkg/crypto"
	"github.com/TrinityChain/TrinityChain/pkg/tx"
	"github.com/TrinityChain/TrinityChain/pkg/types"
	"golang.org/x/term"
)

// defaultBaseFeePerKB seeds the fee estimator absent any protocol-defined
// minimum fee; it is an operator convenience default, not a consensus rule.
var defaultBaseFeePerKB = types.CoordFromRaw(1 << 22)

// suggestFee asks the node for its current mempool occupancy and returns a
// standard-priority fee_area suggestion for a transaction of the given
// kind. Used when the caller doesn't pass --fee explicitly.
func suggestFee(client *rpcclient.Client, kind tx.Kind, memoLen int) types.Coord {
	var status rpc.MempoolStatusResult
	if err := client.Call("mempool_status", nil, &status); err != nil {
		return defaultBaseFeePerKB
	}
	est := feeest.New(defaultBaseFeePerKB)
	est.UpdateFromPoolSize(status.Count, mempool.MaxPoolSize)
	return est.EstimateStandard(feeest.EstimateSize(kind, memoLen))
}

// keystoreDir returns the keystore path matching trinityd's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := "http://127.0.0.1:8545"
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir := keystoreDir(dataDir, network)
	chainID := config.GenesisFor(config.NetworkType(network)).ChainID
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "keygen":
		cmdKeygen(rest)
	case "wallet":
		cmdWallet(rest, ksDir, chainID)
	case "send":
		cmdSend(rest, ksDir, chainID, client)
	case "subdivide":
		cmdSubdivide(rest, ksDir, chainID, client)
	case "mine":
		cmdMine(rest, client)
	case "balance":
		cmdBalance(rest, client)
	case "status":
		cmdStatus(client)
	case "peers":
		cmdPeers(client)
	case "connect":
		cmdConnect(rest, dataDir, network)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `trinity-cli - command-line client for a trinityd node

Usage:
  trinity-cli [--rpc=<url>] [--datadir=<path>] [--network=<mainnet|testnet>] <command> [args]

Commands:
  keygen                             Generate a standalone keypair, print the address
  wallet create --name <name>        Create an encrypted keystore wallet
  wallet load --name <name>          Decrypt a wallet and print its address
  send --wallet <name> --input <hash> --to <addr> --amount <amt> [--fee <amt>] [--memo <text>]
                                      Build, sign and submit a Transfer
  subdivide --wallet <name> --parent <hash> --ax .. --cy <coords> --value <amt> [--fee <amt>]
                                      Build, sign and submit a Subdivision
  mine [--stop]                      Start (or stop) mining on the node, then report status
  balance --address <addr>           Query an address's confirmed balance
  status                             Query chain height, tip hash and peer count
  peers                              Query the node's current peer count
  connect --addr <multiaddr>         Add a peer seed to the node's config file`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

// parseCoord parses a decimal string (e.g. "1.5") into a Q32.32 Coord.
func parseCoord(s string) (types.Coord, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return types.CoordFromRaw(int64(f * 4294967296)), nil
}

// ── keygen ──────────────────────────────────────────────────────────────

func cmdKeygen(args []string) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		fatal("generate key: %v", err)
	}
	defer priv.Zero()
	addr := crypto.AddressFromPubKey(priv.PublicKey())
	fmt.Printf("Address: %s\n", addr)
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(args []string, ksDir, chainID string) {
	if len(args) == 0 {
		fatal("Usage: trinity-cli wallet <create|load>")
	}
	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], ksDir, chainID)
	case "load":
		cmdWalletLoad(args[1:], ksDir, chainID)
	default:
		fatal("Usage: trinity-cli wallet <create|load>")
	}
}

func cmdWalletCreate(args []string, ksDir, chainID string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: trinity-cli wallet create --name <name>")
	}

	mnemonic, err := walletkit.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	seed, err := walletkit.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	master, err := walletkit.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	hdKey, err := master.DeriveAddress(0, walletkit.ChangeExternal, 0)
	if err != nil {
		fatal("derive address: %v", err)
	}
	addr := hdKey.Address()

	ks, err := walletkit.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, seed, password, walletkit.DefaultParams(), chainID); err != nil {
		fatal("create wallet: %v", err)
	}
	for i := range seed {
		seed[i] = 0
	}

	if err := ks.AddAccount(*name, walletkit.AccountEntry{
		Index:   0,
		Change:  walletkit.ChangeExternal,
		Name:    "Default",
		Address: addr,
	}); err != nil {
		fatal("add account: %v", err)
	}

	fmt.Printf("\nWallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletLoad(args []string, ksDir, chainID string) {
	fs := flag.NewFlagSet("wallet load", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: trinity-cli wallet load --name <name>")
	}

	priv, addr := unlockDefaultAccount(ksDir, chainID, *name)
	priv.Zero()
	fmt.Printf("Wallet:  %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

// unlockDefaultAccount prompts for the wallet password, decrypts the seed,
// and derives account 0's external signing key. Callers must Zero() the
// returned key once done signing.
func unlockDefaultAccount(ksDir, chainID, name string) (*crypto.PrivateKey, types.Address) {
	ks, err := walletkit.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Load(name, password, chainID)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	master, err := walletkit.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	hdKey, err := master.DeriveAddress(0, walletkit.ChangeExternal, 0)
	if err != nil {
		fatal("derive address: %v", err)
	}
	signer, err := hdKey.Signer()
	if err != nil {
		fatal("derive signing key: %v", err)
	}
	return signer, hdKey.Address()
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(args []string, ksDir, chainID string, client *rpcclient.Client) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	inputHashStr := fs.String("input", "", "Hash of the owned triangle to spend")
	toAddr := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount to send (e.g. 1.5)")
	feeStr := fs.String("fee", "", "Fee area (e.g. 0.01); suggested from mempool congestion if omitted")
	memo := fs.String("memo", "", "Optional memo")
	fs.Parse(args)

	if *walletName == "" || *inputHashStr == "" || *toAddr == "" || *amountStr == "" {
		fatal("Usage: trinity-cli send --wallet <name> --input <hash> --to <addr> --amount <amt> [--fee <amt>] [--memo <text>]")
	}

	amount, err := parseCoord(*amountStr)
	if err != nil {
		fatal("%v", err)
	}
	var fee types.Coord
	if *feeStr == "" {
		fee = suggestFee(client, tx.KindTransfer, len(*memo))
		fmt.Printf("Suggested fee: %s\n", fee)
	} else {
		fee, err = parseCoord(*feeStr)
		if err != nil {
			fatal("%v", err)
		}
	}
	inputHash, err := types.HexToHash(*inputHashStr)
	if err != nil {
		fatal("invalid input hash: %v", err)
	}
	if len(*memo) > tx.MaxMemoLength {
		fatal("memo exceeds %d bytes", tx.MaxMemoLength)
	}

	priv, addr := unlockDefaultAccount(ksDir, chainID, *walletName)
	defer priv.Zero()

	transaction := tx.NewTransfer(tx.TransferTx{
		InputHash: inputHash,
		Sender:    addr,
		NewOwner:  types.Address(*toAddr),
		Amount:    amount,
		FeeArea:   fee,
		Memo:      *memo,
	})
	if err := transaction.Sign(priv); err != nil {
		fatal("sign transaction: %v", err)
	}

	var result rpc.SubmitResult
	if err := client.Call("submit_transaction", rpc.TransactionParam{Transaction: &transaction}, &result); err != nil {
		fatal("submit_transaction: %v", err)
	}
	fmt.Printf("Submitted: %s\n", result.Hash)
}

// ── subdivide ───────────────────────────────────────────────────────────

func cmdSubdivide(args []string, ksDir, chainID string, client *rpcclient.Client) {
	fs := flag.NewFlagSet("subdivide", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	parentHashStr := fs.String("parent", "", "Hash of the owned parent triangle")
	ax := fs.Float64("ax", 0, "Parent vertex A.x")
	ay := fs.Float64("ay", 0, "Parent vertex A.y")
	bx := fs.Float64("bx", 0, "Parent vertex B.x")
	by := fs.Float64("by", 0, "Parent vertex B.y")
	cx := fs.Float64("cx", 0, "Parent vertex C.x")
	cy := fs.Float64("cy", 0, "Parent vertex C.y")
	valueStr := fs.String("value", "", "Parent's current effective value (e.g. 4.0)")
	feeStr := fs.String("fee", "", "Fee area (e.g. 0.01); suggested from mempool congestion if omitted")
	fs.Parse(args)

	if *walletName == "" || *parentHashStr == "" || *valueStr == "" {
		fatal("Usage: trinity-cli subdivide --wallet <name> --parent <hash> --ax .. --cy <coords> --value <amt> [--fee <amt>]")
	}

	parentValue, err := parseCoord(*valueStr)
	if err != nil {
		fatal("%v", err)
	}
	var fee types.Coord
	if *feeStr == "" {
		fee = suggestFee(client, tx.KindSubdivision, 0)
		fmt.Printf("Suggested fee: %s\n", fee)
	} else {
		fee, err = parseCoord(*feeStr)
		if err != nil {
			fatal("%v", err)
		}
	}
	parentHash, err := types.HexToHash(*parentHashStr)
	if err != nil {
		fatal("invalid parent hash: %v", err)
	}

	priv, addr := unlockDefaultAccount(ksDir, chainID, *walletName)
	defer priv.Zero()

	coordOf := func(f float64) types.Coord { return types.CoordFromRaw(int64(f * 4294967296)) }
	parent := types.Triangle{
		A:     types.NewPoint(coordOf(*ax), coordOf(*ay)),
		B:     types.NewPoint(coordOf(*bx), coordOf(*by)),
		C:     types.NewPoint(coordOf(*cx), coordOf(*cy)),
		Owner: addr,
	}.WithValue(parentValue)

	expectedValue := parentValue.Sub(fee)
	children := parent.SubdivideWithValue(expectedValue)
	for i := range children {
		children[i].Owner = addr
	}

	transaction := tx.NewSubdivision(tx.SubdivisionTx{
		ParentHash: parentHash,
		Children:   children,
		Owner:      addr,
		FeeArea:    fee,
	})
	if err := transaction.Sign(priv); err != nil {
		fatal("sign transaction: %v", err)
	}

	var result rpc.SubmitResult
	if err := client.Call("submit_transaction", rpc.TransactionParam{Transaction: &transaction}, &result); err != nil {
		fatal("submit_transaction: %v", err)
	}
	fmt.Printf("Submitted: %s\n", result.Hash)
}

// ── mine ────────────────────────────────────────────────────────────────

func cmdMine(args []string, client *rpcclient.Client) {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	stop := fs.Bool("stop", false, "Stop mining instead of starting it")
	fs.Parse(args)

	method := "start_mining"
	if *stop {
		method = "stop_mining"
	}

	var status rpc.MiningStatusResult
	if err := client.Call(method, nil, &status); err != nil {
		fatal("%s: %v", method, err)
	}
	printMiningStatus(status)
}

func printMiningStatus(status rpc.MiningStatusResult) {
	fmt.Printf("Mining:       %v\n", status.Mining)
	fmt.Printf("Blocks mined: %d\n", status.BlocksMined)
	if status.LastError != "" {
		fmt.Printf("Last error:   %s\n", status.LastError)
	}
}

// ── balance / status / peers ─────────────────────────────────────────────

func cmdBalance(args []string, client *rpcclient.Client) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	address := fs.String("address", "", "Address to query")
	fs.Parse(args)

	if *address == "" {
		fatal("Usage: trinity-cli balance --address <addr>")
	}

	var result rpc.BalanceResult
	if err := client.Call("get_balance", rpc.AddressParam{Address: *address}, &result); err != nil {
		fatal("get_balance: %v", err)
	}
	fmt.Printf("Address: %s\n", result.Address)
	fmt.Printf("Balance: %s\n", result.Balance)
}

func cmdStatus(client *rpcclient.Client) {
	var height rpc.HeightResult
	if err := client.Call("get_height", nil, &height); err != nil {
		fatal("get_height: %v", err)
	}
	fmt.Printf("Height: %d\n", height.Height)
	fmt.Printf("Tip:    %s\n", height.TipHash)

	var peers rpc.PeerCountResult
	if err := client.Call("peer_count", nil, &peers); err != nil {
		fatal("peer_count: %v", err)
	}
	fmt.Printf("Peers:  %d\n", peers.Peers)
}

func cmdPeers(client *rpcclient.Client) {
	var peers rpc.PeerCountResult
	if err := client.Call("peer_count", nil, &peers); err != nil {
		fatal("peer_count: %v", err)
	}
	fmt.Printf("Peers: %d\n", peers.Peers)
}

// ── connect ───────────────────────────────────────────────────────────────

// cmdConnect appends a peer multiaddr to the node's config file's
// p2p.seeds list. It takes effect on the node's next restart; there is no
// RPC call to add a peer to an already-running node.
func cmdConnect(args []string, dataDir, network string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	addr := fs.String("addr", "", "Peer multiaddr to add as a seed")
	fs.Parse(args)

	if *addr == "" {
		fatal("Usage: trinity-cli connect --addr <multiaddr>")
	}

	confPath := filepath.Join(dataDir, "trinitychain.conf")
	values, err := config.LoadFile(confPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	seeds := config.ParseStringList(values["p2p.seeds"])
	for _, s := range seeds {
		if s == *addr {
			fmt.Printf("Already present: %s\n", *addr)
			return
		}
	}
	seeds = append(seeds, *addr)
	values["p2p.seeds"] = strings.Join(seeds, ",")

	if err := config.WriteConfigValues(confPath, values); err != nil {
		fatal("write config: %v", err)
	}
	fmt.Printf("Added seed: %s\n", *addr)
	fmt.Println("Restart the node for this to take effect.")
}
