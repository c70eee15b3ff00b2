// Adapted from this codebase's types/address.go: same thin wrapper over
// tendermint's crypto.Address, generalized to hold BLS-derived addresses.
package types

import (
	"bytes"
	"encoding/hex"

	"github.com/tendermint/tendermint/crypto"
)

// Address identifies a validator by the digest of its public key.
type Address crypto.Address

func AddressFromPubKey(key crypto.PubKey) Address {
	return Address(key.Address())
}

func (addr Address) Equal(other Address) bool {
	return bytes.Equal(crypto.Address(addr), crypto.Address(other))
}

func (addr Address) String() string {
	return hex.EncodeToString(addr)
}

func (addr Address) Bytes() []byte {
	return []byte(addr)
}
