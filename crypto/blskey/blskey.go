// Package blskey supplies the validator signing key.
//
// Proposals and votes are signed through a BLS scheme built on the
// go.dedis.ch/kyber/v3 pairing library (sign/bls over a bn256 curve),
// wrapped to satisfy tendermint's crypto.PubKey/PrivKey interfaces the
// rest of the codebase (types.Validator, privval.Wallet) is written
// against.
package blskey

import (
	"bytes"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/util/random"

	"github.com/tendermint/tendermint/crypto"
	tmjson "github.com/tendermint/tendermint/libs/json"
)

const KeyType = "dualbft-bls-bn256"

var suite = bn256.NewSuite()

func init() {
	tmjson.RegisterType(&PubKey{}, "dualbft/PubKey")
	tmjson.RegisterType(&PrivKey{}, "dualbft/PrivKey")
	tmjson.RegisterType(suite.G2().Point(), "dualbft/bn256.PointG2")
	tmjson.RegisterType(suite.G2().Scalar(), "dualbft/bn256.ScalarG2")
}

// PubKey wraps a kyber G2 point, the public half of a BLS key pair.
type PubKey struct {
	Point kyber.Point
}

func (pk *PubKey) Address() crypto.Address {
	return crypto.AddressHash(pk.Bytes())
}

func (pk *PubKey) Bytes() []byte {
	b, err := pk.Point.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

func (pk *PubKey) VerifySignature(msg, sig []byte) bool {
	return bls.Verify(suite, pk.Point, msg, sig) == nil
}

func (pk *PubKey) Equals(other crypto.PubKey) bool {
	o, ok := other.(*PubKey)
	if !ok {
		return false
	}
	return bytes.Equal(pk.Bytes(), o.Bytes())
}

func (pk *PubKey) Type() string { return KeyType }

func (pk *PubKey) String() string {
	return fmt.Sprintf("PubKey{%X}", pk.Bytes())
}

// PrivKey wraps a kyber scalar, the private half of a BLS key pair.
type PrivKey struct {
	Scalar kyber.Scalar
	Pub    *PubKey
}

// GenPrivKey draws a fresh BLS key pair from the system CSPRNG, mirroring
// the teacher repository's privval.GenFilePV -> bls.GenPrivKey call site.
func GenPrivKey() *PrivKey {
	priv, pub := bls.NewKeyPair(suite, random.New())
	return &PrivKey{Scalar: priv, Pub: &PubKey{Point: pub}}
}

func (sk *PrivKey) Bytes() []byte {
	b, err := sk.Scalar.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

func (sk *PrivKey) Sign(msg []byte) ([]byte, error) {
	return bls.Sign(suite, sk.Scalar, msg)
}

func (sk *PrivKey) PubKey() crypto.PubKey {
	return sk.Pub
}

func (sk *PrivKey) Equals(other crypto.PrivKey) bool {
	o, ok := other.(*PrivKey)
	if !ok {
		return false
	}
	return bytes.Equal(sk.Bytes(), o.Bytes())
}

func (sk *PrivKey) Type() string { return KeyType }
