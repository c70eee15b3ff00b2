package consensus

import (
	"time"

	"github.com/tendermint/tendermint/crypto"

	"dualbft/types"
	"dualbft/wire"
)

// The external collaborators the consensus engine depends on, kept as
// small interfaces owned by this package (rather than by the adapter
// packages) so the core never imports its own adapters — only types and
// wire. Concrete adapters live in mempool/, ledger/, privval/, recovery/
// and transport/ and satisfy these structurally.

// Wallet signs outbound payloads with the local validator key
// (privval.FileWallet, generalizing the teacher repository's privval.FilePV).
type Wallet interface {
	Address() types.Address
	PubKey() crypto.PubKey
	Sign(msg []byte) ([]byte, error)
}

// Clock supplies wall-clock time, overridable in tests
// (clock.System in production, clock.Fixed in tests, grounded on
// tendermint/libs/time's test clock pattern).
type Clock interface {
	UtcNow() time.Time
}

// Mempool supplies the ordered transaction list a primary proposes and
// resolves hashes referenced by an inbound PrepareRequest
// (mempool.Mempool, generalizing mempool/list_mempool.go).
type Mempool interface {
	GetOrderedTxs(limit int) []types.Tx
	Lookup(h types.Hash) (types.Tx, bool)
}

// Ledger verifies transactions against the committed chain state and
// accepts a finished block (ledger.Ledger, generalizing
// state/executor.go's BlockExecutor + store/kv_store.go's apply loop).
type Ledger interface {
	Verify(tx types.Tx, slot types.SlotID) error
	Reverify(env *wire.Envelope) error
	SubmitBlock(block *types.Block) error
	MedianTime() time.Time
}

// Transport moves signed envelopes between validators
// (transport.Reactor, generalizing consensus/reactor.go).
type Transport interface {
	Broadcast(env *wire.Envelope)
	SendDirect(peerIndex int, env *wire.Envelope)
	// RequestTx asks peerIndex for a transaction referenced by an accepted
	// prepare-request but not yet present locally. Gossip/flood behavior
	// is the transport's concern; the consensus core only triggers it.
	RequestTx(peerIndex int, hash types.Hash)
}

// Recovery persists and reloads round state across restarts
// (recovery.Log, generalizing store/kv_store.go).
type Recovery interface {
	Save(snapshot *Snapshot) error
	Load() (*Snapshot, error)
}
