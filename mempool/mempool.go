// Package mempool buffers candidate transactions for consensus, adapted
// from list_mempool.go's clist-backed pending set: the proxy-app check and
// cache layers are gone (verification moved into the ledger collaborator),
// but the clist + sync.Map indexing stays.
package mempool

import (
	"sync"
	"sync/atomic"

	"github.com/tendermint/tendermint/libs/clist"
	"github.com/tendermint/tendermint/libs/log"

	"dualbft/types"
)

// Mempool is a consensus.Mempool implementation: an ordered, deduplicated
// set of not-yet-committed transactions.
type Mempool struct {
	txs    *clist.CList
	byKey  sync.Map // types.TxKey -> *clist.CElement
	bytes  int64
	logger log.Logger

	onNewTx func(types.Tx) // wired to Service.InboundTx by node/ wiring
}

func New(logger log.Logger) *Mempool {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Mempool{txs: clist.New(), logger: logger}
}

// SetNewTxCallback wires a handler invoked for every transaction accepted
// through AddTx, generalizing list_mempool.go's txsAvailable channel into a
// direct call into the consensus service.
func (m *Mempool) SetNewTxCallback(f func(types.Tx)) { m.onNewTx = f }

// AddTx admits tx into the pending set. Returns false if tx was already
// present.
func (m *Mempool) AddTx(tx types.Tx) bool {
	key := types.KeyFromHash(tx.Hash())
	if _, dup := m.byKey.Load(key); dup {
		return false
	}
	e := m.txs.PushBack(tx)
	m.byKey.Store(key, e)
	atomic.AddInt64(&m.bytes, int64(len(tx.Bytes())))
	if m.onNewTx != nil {
		m.onNewTx(tx)
	}
	return true
}

// GetOrderedTxs returns up to limit pending transactions in arrival order,
// the order a primary proposes them in.
func (m *Mempool) GetOrderedTxs(limit int) []types.Tx {
	var out []types.Tx
	for e := m.txs.Front(); e != nil && (limit <= 0 || len(out) < limit); e = e.Next() {
		out = append(out, e.Value.(types.Tx))
	}
	return out
}

// Lookup resolves a hash referenced by an inbound prepare-request against
// the pending set.
func (m *Mempool) Lookup(h types.Hash) (types.Tx, bool) {
	v, ok := m.byKey.Load(types.KeyFromHash(h))
	if !ok {
		return nil, false
	}
	return v.(*clist.CElement).Value.(types.Tx), true
}

// RemoveCommitted drops every transaction in block from the pending set,
// called by ledger.Ledger.SubmitBlock once the block is written.
func (m *Mempool) RemoveCommitted(block *types.Block) {
	for _, tx := range block.Txs {
		key := types.KeyFromHash(tx.Hash())
		v, ok := m.byKey.LoadAndDelete(key)
		if !ok {
			continue
		}
		e := v.(*clist.CElement)
		m.txs.Remove(e)
		e.DetachPrev()
		atomic.AddInt64(&m.bytes, -int64(len(tx.Bytes())))
	}
}

func (m *Mempool) Size() int       { return m.txs.Len() }
func (m *Mempool) Bytes() int64    { return atomic.LoadInt64(&m.bytes) }
