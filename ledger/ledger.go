// Package ledger verifies transactions against committed chain state and
// accepts finished blocks, generalizing state/executor.go's BlockExecutor
// (validate -> commit -> update state) and store/kv_store.go's tm-db-backed
// apply loop into the consensus.Ledger contract.
package ledger

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
	"github.com/tendermint/tm-db/goleveldb"

	"dualbft/types"
	"dualbft/wire"
)

var ErrUnknownHeight = errors.New("block height does not match expected next height")

// MempoolRemover is the subset of mempool.Mempool the ledger needs on a
// successful commit; kept narrow so this package does not import mempool.
type MempoolRemover interface {
	RemoveCommitted(block *types.Block)
}

// PersistNotifier is implemented by consensus.Service; kept narrow for the
// same reason.
type PersistNotifier interface {
	PersistCompleted(block *types.Block)
}

// Ledger is a consensus.Ledger implementation backed by a tm-db key-value
// store, one block per height.
type Ledger struct {
	db       tmdb.DB
	logger   log.Logger
	mempool  MempoolRemover
	notifier PersistNotifier

	nextHeight types.Height
	medianTime time.Time
	lastHeader *types.Header
}

func New(name, dir string, logger log.Logger, mempool MempoolRemover) (*Ledger, error) {
	db, err := goleveldb.NewDB(name, dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening ledger store")
	}
	return NewWithDB(db, logger, mempool), nil
}

func NewWithDB(db tmdb.DB, logger log.Logger, mempool MempoolRemover) *Ledger {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Ledger{db: db, logger: logger, mempool: mempool, nextHeight: 1}
}

func (l *Ledger) SetNotifier(n PersistNotifier) { l.notifier = n }

// Verify runs business-rule validation on tx before it may be folded into
// slot. Business logic is the chain application's concern; this stub
// accepts any well-formed transaction, matching the demo chain's
// SmallBank apply loop which never rejects a syntactically valid tx.
func (l *Ledger) Verify(tx types.Tx, slot types.SlotID) error {
	if tx == nil || len(tx.Bytes()) == 0 {
		return errors.New("empty transaction")
	}
	return nil
}

// Reverify re-checks a bundled envelope's transaction-dependent payload
// during recovery replay, once the transactions it references have been
// resolved. Prepare-requests only reference hashes, so there is nothing
// further to check here once AddTransaction's per-tx Verify has already
// run.
func (l *Ledger) Reverify(env *wire.Envelope) error {
	return nil
}

// MedianTime returns the timestamp floor new proposals must clear.
func (l *Ledger) MedianTime() time.Time {
	if l.medianTime.IsZero() {
		return time.Unix(0, 0)
	}
	return l.medianTime
}

// SubmitBlock durably appends block, mirroring blockExcutor.Commit +
// KVStore.CommitBlock: write the block's transactions, header hash and
// commit signatures, advance local height/time
// bookkeeping, drop its transactions from the mempool, and notify the
// consensus service so it can move to the next round.
func (l *Ledger) SubmitBlock(block *types.Block) error {
	if block.Header.Height != l.nextHeight {
		return errors.Wrapf(ErrUnknownHeight, "got %d want %d", block.Header.Height, l.nextHeight)
	}

	batch := l.db.NewBatch()
	defer batch.Close()

	key := heightKey(block.Header.Height)
	for _, tx := range block.Txs {
		if err := batch.Set(txKey(tx.Hash()), tx.Bytes()); err != nil {
			return errors.Wrap(err, "staging transaction")
		}
	}
	if err := batch.Set(key, block.Header.Hash()); err != nil {
		return errors.Wrap(err, "staging block header")
	}
	if err := batch.Set(sigKey(block.Header.Height), encodeSignatures(block.Signatures)); err != nil {
		return errors.Wrap(err, "staging commit signatures")
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "committing block batch")
	}

	l.nextHeight = block.Header.Height + 1
	l.medianTime = block.Header.Timestamp
	l.lastHeader = &block.Header

	if l.mempool != nil {
		l.mempool.RemoveCommitted(block)
	}
	if l.notifier != nil {
		l.notifier.PersistCompleted(block)
	}
	l.logger.Info("committed block", "height", block.Header.Height, "txs", len(block.Txs))
	return nil
}

func heightKey(h types.Height) []byte {
	return append([]byte("dualbft/block/"), encodeHeight(h)...)
}

func txKey(h types.Hash) []byte {
	return append([]byte("dualbft/tx/"), h...)
}

func sigKey(h types.Height) []byte {
	return append([]byte("dualbft/sig/"), encodeHeight(h)...)
}

// encodeSignatures serializes a block's validator-index-ordered commit
// signatures for durable storage alongside its header: 4-byte index,
// 4-byte length, signature bytes, repeated.
func encodeSignatures(sigs []types.CommitSignature) []byte {
	buf := []byte{}
	var tmp [4]byte
	for _, s := range sigs {
		binary.BigEndian.PutUint32(tmp[:], uint32(s.ValidatorIndex))
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint32(tmp[:], uint32(len(s.Signature)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, s.Signature...)
	}
	return buf
}

func encodeHeight(h types.Height) []byte {
	b := make([]byte, 4)
	b[0] = byte(h >> 24)
	b[1] = byte(h >> 16)
	b[2] = byte(h >> 8)
	b[3] = byte(h)
	return b
}

func (l *Ledger) Close() error { return l.db.Close() }
