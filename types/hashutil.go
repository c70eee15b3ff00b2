package types

import (
	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// merkleHash is this codebase's canonical way of combining a handful of byte
// slices into one digest (types/block.go Header.Hash).
func merkleHash(items [][]byte) Hash {
	return Hash(merkle.HashFromByteSlices(items))
}

// NewHash digests a single opaque byte string, used for hashing individual
// message bodies rather than combining several fields.
func NewHash(b []byte) Hash {
	return Hash(tmhash.Sum(b))
}
