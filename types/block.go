// Generalizes this codebase's types/block.go Header/Block: a single Slot
// field becomes (Height, View, PrimaryIndex), and the body-hashing
// technique (crypto/merkle.HashFromByteSlices over the canonical field
// list) is kept unchanged.
package types

import (
	"encoding/binary"
	"time"
)

// Header is the deterministic block header a primary commits to once its
// slot's transaction set is fully resolved (ConsensusContext.EnsureHeader).
type Header struct {
	ChainID      string
	Height       Height
	View         View
	PrimaryIndex int32
	PrevHash     Hash
	MerkleRoot   Hash // root of the slot's TxHashes, in committed order
	Timestamp    time.Time
	Nonce        uint64

	hash Hash // memoized
}

func (h *Header) Hash() Hash {
	if h == nil {
		return nil
	}
	if h.hash == nil {
		var heightBuf, nonceBuf, primaryBuf, tsBuf [8]byte
		binary.BigEndian.PutUint64(heightBuf[:], uint64(h.Height))
		binary.BigEndian.PutUint64(nonceBuf[:], h.Nonce)
		binary.BigEndian.PutUint64(primaryBuf[:], uint64(h.PrimaryIndex))
		binary.BigEndian.PutUint64(tsBuf[:], uint64(h.Timestamp.UnixNano()))
		h.hash = merkleHash([][]byte{
			[]byte(h.ChainID),
			heightBuf[:],
			{byte(h.View)},
			primaryBuf[:],
			h.PrevHash,
			h.MerkleRoot,
			tsBuf[:],
			nonceBuf[:],
		})
	}
	return h.hash
}

// CommitSignature pairs a validator's index with its signature over the
// committed header's hash, the proof-of-agreement a block carries once a
// slot reaches commit quorum.
type CommitSignature struct {
	ValidatorIndex int32
	Signature      []byte
}

// Block is a header paired with the resolved transaction list and the
// validator-index-ordered commit signatures that authorized it, the unit
// the ledger collaborator is asked to submit once a slot reaches commit
// quorum.
type Block struct {
	Header     Header
	Txs        []Tx
	Signatures []CommitSignature
}
