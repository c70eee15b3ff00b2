package consensus

import (
	"time"

	"github.com/go-kit/kit/log/term"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/libs/log"

	"dualbft/clock"
	"dualbft/crypto/blskey"
	"dualbft/types"
	"dualbft/wire"
)

// harnessLogger is a TestingLogger that colors output per validator index
// ("validator" key must be present), so a multi-node test's interleaved
// log lines stay easy to tell apart.
func harnessLogger() log.Logger {
	return log.TestingLoggerWithColorFn(func(keyvals ...interface{}) term.FgBgColor {
		for i := 0; i < len(keyvals)-1; i += 2 {
			if keyvals[i] == "validator" {
				return term.FgBgColor{Fg: term.Color(uint8(keyvals[i+1].(int) + 1))}
			}
		}
		return term.FgBgColor{}
	})
}

// testWallet adapts a bare blskey.PrivKey into a Wallet, the same shape
// privval.FileWallet gives the production Context.
type testWallet struct {
	priv *blskey.PrivKey
}

func newTestWallet() testWallet { return testWallet{priv: blskey.GenPrivKey()} }

func (w testWallet) Address() types.Address { return types.AddressFromPubKey(w.priv.PubKey()) }
func (w testWallet) PubKey() crypto.PubKey  { return w.priv.PubKey() }
func (w testWallet) Sign(msg []byte) ([]byte, error) { return w.priv.Sign(msg) }

// fakeLedger is a consensus.Ledger whose Verify/SubmitBlock outcomes and
// MedianTime are test-controlled.
type fakeLedger struct {
	verifyErr   error
	submitErr   error
	medianTime  time.Time
	committed   []*types.Block
	reverifyErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{medianTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (l *fakeLedger) Verify(tx types.Tx, slot types.SlotID) error { return l.verifyErr }
func (l *fakeLedger) Reverify(env *wire.Envelope) error           { return l.reverifyErr }
func (l *fakeLedger) SubmitBlock(block *types.Block) error {
	if l.submitErr != nil {
		return l.submitErr
	}
	l.committed = append(l.committed, block)
	return nil
}
func (l *fakeLedger) MedianTime() time.Time { return l.medianTime }

// fakeMempool is a consensus.Mempool backed by a fixed slice, enough to
// drive a primary's proposal and a backup's hash resolution.
type fakeMempool struct {
	txs map[string]types.Tx
}

func newFakeMempool(txs ...types.Tx) *fakeMempool {
	m := &fakeMempool{txs: make(map[string]types.Tx)}
	for _, tx := range txs {
		m.txs[tx.Hash().String()] = tx
	}
	return m
}

func (m *fakeMempool) GetOrderedTxs(limit int) []types.Tx {
	out := make([]types.Tx, 0, len(m.txs))
	for _, tx := range m.txs {
		out = append(out, tx)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (m *fakeMempool) Lookup(h types.Hash) (types.Tx, bool) {
	tx, ok := m.txs[h.String()]
	return tx, ok
}

// network wires n Services together: Broadcast/SendDirect synchronously
// invoke the recipients' handleInboundPayload, since no test in this file
// runs a Service's event loop — handlers are exercised directly and
// deterministically instead of through the async queue.
type network struct {
	nodes []*harnessNode
}

type harnessNode struct {
	index   int
	wallet  testWallet
	ctx     *Context
	svc     *Service
	ledger  *fakeLedger
	mempool *fakeMempool
	net     *network
}

func (n *harnessNode) Broadcast(env *wire.Envelope) {
	for _, other := range n.net.nodes {
		if other.index == n.index {
			continue
		}
		other.svc.handleInboundPayload(env)
	}
}

func (n *harnessNode) SendDirect(peerIndex int, env *wire.Envelope) {
	for _, other := range n.net.nodes {
		if other.index == peerIndex {
			other.svc.handleInboundPayload(env)
			return
		}
	}
}

func (n *harnessNode) RequestTx(peerIndex int, h types.Hash) {}

// newNetwork builds n nodes sharing a validator set, each with its own
// fakeLedger/fakeMempool and a fixed clock pinned to now.
func newNetwork(n int, now time.Time) *network {
	net := &network{}
	wallets := make([]testWallet, n)
	vals := make([]*types.Validator, n)
	for i := 0; i < n; i++ {
		wallets[i] = newTestWallet()
	}
	for i, w := range wallets {
		vals[i] = &types.Validator{Address: w.Address(), PubKey: w.priv.PubKey()}
	}
	vs := types.NewValidatorSet(vals)

	params := Params{
		MillisecondsPerBlock:   1000,
		PrimaryTimerMultiplier: 2,
		MaxTxPerBlock:          100,
	}

	logger := harnessLogger()
	for i := 0; i < n; i++ {
		hn := &harnessNode{index: i, wallet: wallets[i], net: net}
		hn.ledger = newFakeLedger()
		hn.mempool = newFakeMempool()
		nodeLogger := logger.With("validator", i)
		ctx := NewContext("test-chain", vs, int32(i), wallets[i], clock.NewFixed(now), hn.mempool, hn.ledger, params, nodeLogger)
		ctx.Reset(1, 0, nil)
		hn.ctx = ctx
		svc := NewService(ctx, nil, hn)
		svc.SetLogger(nodeLogger)
		hn.svc = svc
		net.nodes = append(net.nodes, hn)
	}
	return net
}

func (net *network) node(i int) *harnessNode { return net.nodes[i] }
