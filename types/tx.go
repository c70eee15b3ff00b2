// Generalizes this codebase's types/tx.go Tx type: the demo chain's opaque
// SmallBank transaction becomes an interface so the consensus core never
// has to know a transaction's business payload, only its hash and which
// other transactions it conflicts with.
package types

import "github.com/tendermint/tendermint/crypto/tmhash"

// Tx is an external, opaque transaction as seen by the consensus core. The
// mempool and ledger collaborators know its concrete type; the core only
// ever calls these three methods.
type Tx interface {
	Hash() Hash
	// Conflicts lists the hashes of other transactions this transaction may
	// not share a block with.
	Conflicts() []Hash
	Bytes() []byte
}

// RawTx is the simplest Tx implementation: an opaque byte string with no
// declared conflicts, mirroring the teacher repository's types.NormalTx.
type RawTx []byte

func (tx RawTx) Hash() Hash        { return Hash(tmhash.Sum(tx)) }
func (tx RawTx) Conflicts() []Hash { return nil }
func (tx RawTx) Bytes() []byte     { return tx }

func TxsRoot(hashes []Hash) Hash {
	bz := make([][]byte, len(hashes))
	for i, h := range hashes {
		bz[i] = h
	}
	return merkleHash(bz)
}
