package types

import tmbytes "github.com/tendermint/tendermint/libs/bytes"

// Hash is a content digest, shared for block headers, prepare-request
// bodies and transactions, the way this codebase's types.Header used
// tmbytes.HexBytes throughout (types/block.go).
type Hash = tmbytes.HexBytes

func (tk TxKey) String() string { return Hash(tk[:]).String() }

// TxKey is a fixed-size map key derived from a Hash, mirroring
// mempool.TxKey (mempool/list_mempool.go).
type TxKey [32]byte

func KeyFromHash(h Hash) TxKey {
	var k TxKey
	copy(k[:], h)
	return k
}
