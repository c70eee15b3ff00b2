// Package node wires together config, storage, signing and transport into
// a runnable validator process, adapted from node/node.go: createTransport/
// createSwitch/makeNodeInfo/NewNode stay structurally the same, but the
// single testReactor becomes the full consensus.Service plus its
// transport.Reactor, backed by ledger.Ledger, mempool.Mempool and
// recovery.Log instead of a no-op stand-in.
package node

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/p2p/conn"
	"github.com/tendermint/tendermint/version"

	"dualbft/clock"
	"dualbft/config"
	"dualbft/consensus"
	"dualbft/ledger"
	"dualbft/libs/metric"
	"dualbft/mempool"
	"dualbft/privval"
	"dualbft/recovery"
	"dualbft/rpc"
	"dualbft/transport"
	"dualbft/types"
)

// ConsensusChannel is advertised in node info the way consensus.TestChannel
// was; it has no other role since transport.Reactor declares its own
// channels to the switch directly.
const ConsensusChannel = transport.EnvelopeChannel

type Node struct {
	service.BaseService

	config *config.Config

	transport *p2p.MultiplexTransport
	sw        *p2p.Switch
	nodeInfo  p2p.NodeInfo
	nodeKey   *p2p.NodeKey

	wallet   *privval.FileWallet
	mempool  *mempool.Mempool
	ledger   *ledger.Ledger
	recovery *recovery.Log
	ctx      *consensus.Context
	service  *consensus.Service
	reactor  *transport.Reactor

	metrics   *metric.MetricSet
	rpcServer *http.Server
}

func DefaultNewNode(cfg *config.Config, logger log.Logger) (*Node, error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(cfg.NodeKeyFilePath())
	if err != nil {
		return nil, err
	}
	wallet := privval.LoadOrGenFileWallet(cfg.WalletKeyFilePath())
	genesis, err := types.GenesisDocFromFile(cfg.GenesisFilePath())
	if err != nil {
		return nil, fmt.Errorf("loading genesis file: %w", err)
	}
	return NewNode(cfg, nodeKey, wallet, logger, genesis)
}

func createTransport(nodeInfo p2p.NodeInfo, nodeKey *p2p.NodeKey) *p2p.MultiplexTransport {
	mConnConfig := conn.DefaultMConnConfig()
	return p2p.NewMultiplexTransport(nodeInfo, *nodeKey, mConnConfig)
}

func createSwitch(
	cfg *config.Config,
	tr p2p.Transport,
	reactor *transport.Reactor,
	nodeInfo p2p.NodeInfo,
	nodeKey *p2p.NodeKey,
	p2pLogger log.Logger,
) *p2p.Switch {
	sw := p2p.NewSwitch(cfg.P2P, tr)
	sw.SetLogger(p2pLogger)
	sw.AddReactor("CONSENSUS", reactor)
	sw.SetNodeInfo(nodeInfo)
	sw.SetNodeKey(nodeKey)

	p2pLogger.Info("P2P Node ID", "ID", nodeKey.ID(), "file", cfg.NodeKeyFilePath())
	return sw
}

func makeNodeInfo(cfg *config.Config, nodeKey *p2p.NodeKey) (p2p.NodeInfo, error) {
	nodeInfo := p2p.DefaultNodeInfo{
		ProtocolVersion: p2p.NewProtocolVersion(8, 11, 0),
		DefaultNodeID:   nodeKey.ID(),
		Network:         "dualbft",
		Version:         version.TMCoreSemVer,
		Channels:        []byte{transport.EnvelopeChannel, transport.TxChannel},
		Moniker:         cfg.Moniker,
		Other: p2p.DefaultNodeInfoOther{
			TxIndex: "off",
		},
	}

	lAddr := cfg.P2P.ExternalAddress
	if lAddr == "" {
		lAddr = cfg.P2P.ListenAddress
	}
	nodeInfo.ListenAddr = lAddr

	err := nodeInfo.Validate()
	return nodeInfo, err
}

// NewNode assembles the whole validator: ledger and mempool storage, the
// recovery log, the consensus Context/Service pair and the p2p switch that
// carries their traffic. It binds no validator index to a peer ID;
// BindPeerForIndex records those bindings separately.
func NewNode(cfg *config.Config, nodeKey *p2p.NodeKey, wallet *privval.FileWallet, logger log.Logger, genesis *types.GenesisDoc) (*Node, error) {
	validators := genesis.ValidatorSet()
	myIndex := int32(-1)
	for i, v := range validators.Validators {
		if v.Address.Equal(wallet.Address()) {
			myIndex = int32(i)
			break
		}
	}

	mp := mempool.New(logger.With("module", "mempool"))

	lg, err := ledger.New("ledger", cfg.LedgerDirPath(), logger.With("module", "ledger"), mp)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	rec, err := recovery.NewLog("recovery", cfg.RecoveryLogDirPath(), logger.With("module", "recovery"))
	if err != nil {
		return nil, fmt.Errorf("opening recovery log: %w", err)
	}

	params := consensus.Params{
		IgnoreRecoveryLogs:     cfg.Consensus.IgnoreRecoveryLogs,
		MillisecondsPerBlock:   cfg.Consensus.MillisecondsPerBlock,
		PrimaryTimerMultiplier: cfg.Consensus.PrimaryTimerMultiplier,
		MaxTxPerBlock:          cfg.Consensus.MaxTxPerBlock,
		MaxBlockSize:           cfg.Consensus.MaxBlockSize,
		MaxBlockSystemFee:      cfg.Consensus.MaxBlockSystemFee,
	}

	ctx := consensus.NewContext(genesis.ChainID, validators, myIndex, wallet, clock.System{}, mp, lg, params, logger.With("module", "consensus"))
	ctx.Reset(1, 0, nil)

	reactor := transport.NewReactor(nil, mp)
	reactor.SetLogger(logger.With("module", "transport"))

	svc := consensus.NewService(ctx, rec, reactor)
	svc.SetLogger(logger.With("module", "consensus"))

	reactor.SetReceiver(svc)
	lg.SetNotifier(svc)
	mp.SetNewTxCallback(svc.InboundTx)

	p2pLogger := logger.With("module", "p2p")
	nodeInfo, err := makeNodeInfo(cfg, nodeKey)
	if err != nil {
		return nil, err
	}

	tr := createTransport(nodeInfo, nodeKey)
	sw := createSwitch(cfg, tr, reactor, nodeInfo, nodeKey, p2pLogger)

	metrics := metric.NewMetricSet()
	metrics.SetMetrics("consensus", svc.AsMetricItem())

	n := &Node{
		config:    cfg,
		transport: tr,
		sw:        sw,
		nodeInfo:  nodeInfo,
		nodeKey:   nodeKey,
		wallet:    wallet,
		mempool:   mp,
		ledger:    lg,
		recovery:  rec,
		ctx:       ctx,
		service:   svc,
		reactor:   reactor,
		metrics:   metrics,
	}
	n.BaseService = *service.NewBaseService(logger, "Node", n)
	return n, nil
}

func (n *Node) Switch() *p2p.Switch           { return n.sw }
func (n *Node) NodeInfo() p2p.NodeInfo        { return n.nodeInfo }
func (n *Node) Consensus() *consensus.Service { return n.service }

// BindPeerForIndex tells the transport reactor which peer ID carries a
// given validator index's traffic, once that peer's node ID is known
// (typically from genesis or a discovered connection).
func (n *Node) BindPeerForIndex(index int, id p2p.ID) {
	n.reactor.BindValidatorPeer(index, id)
}

func (n *Node) OnStart() error {
	addr, err := p2p.NewNetAddressString(p2p.IDAddressString(n.nodeKey.ID(), n.config.P2P.ListenAddress))
	if err != nil {
		return err
	}
	if err := n.transport.Listen(*addr); err != nil {
		return err
	}

	if err := n.sw.Start(); err != nil {
		return err
	}

	if err := n.service.Start(); err != nil {
		return err
	}

	n.Logger.Info("dialing persistent peers", "peers", n.config.P2P.PersistentPeers)
	if err := n.sw.DialPeersAsync(splitAndTrimEmpty(n.config.P2P.PersistentPeers, ",", " ")); err != nil {
		return fmt.Errorf("could not dial peers from persistent_peers field: %w", err)
	}

	if err := n.startRPC(); err != nil {
		return fmt.Errorf("starting rpc server: %w", err)
	}

	return nil
}

// startRPC wires the consensus service and metric registry into the rpc
// package's Environment and serves its router in the background.
func (n *Node) startRPC() error {
	laddr := n.config.RPC.ListenAddress
	if laddr == "" {
		return nil
	}
	proto, addr := "tcp", laddr
	if parts := strings.SplitN(laddr, "://", 2); len(parts) == 2 {
		proto, addr = parts[0], parts[1]
	}

	ln, err := net.Listen(proto, addr)
	if err != nil {
		return err
	}

	rpc.SetEnvironment(&rpc.Environment{Service: n.service, MetricSet: n.metrics})
	n.rpcServer = &http.Server{Handler: rpc.NewRouter()}

	n.Logger.Info("serving status rpc", "addr", ln.Addr().String())
	go func() {
		if err := n.rpcServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			n.Logger.Error("rpc server stopped", "err", err)
		}
	}()
	return nil
}

func (n *Node) OnStop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Close(); err != nil {
			n.Logger.Error("closing rpc server", "err", err)
		}
	}
	if err := n.service.Stop(); err != nil {
		n.Logger.Error("stopping consensus service", "err", err)
	}
	n.sw.Stop()
	if err := n.transport.Close(); err != nil {
		n.Logger.Error("closing transport", "err", err)
	}
	if err := n.ledger.Close(); err != nil {
		n.Logger.Error("closing ledger", "err", err)
	}
	if err := n.recovery.Close(); err != nil {
		n.Logger.Error("closing recovery log", "err", err)
	}
}

// splitAndTrimEmpty slices s into subslices separated by sep, trims cutset
// from each and drops empty results, the same helper node.go uses to parse
// persistent_peers.
func splitAndTrimEmpty(s, sep, cutset string) []string {
	if s == "" {
		return []string{}
	}
	spl := strings.Split(s, sep)
	out := make([]string, 0, len(spl))
	for _, e := range spl {
		if trimmed := strings.Trim(e, cutset); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
