package wire

import "github.com/tendermint/tendermint/crypto"

// Signer is anything that can sign an arbitrary byte string with the local
// validator key (satisfied by both crypto.PrivKey and consensus.Wallet).
type Signer interface {
	Sign(msg []byte) ([]byte, error)
}

// Sign sets e.Signature to the signer's signature over SigningBytes().
func (e *Envelope) Sign(signer Signer) error {
	sig, err := signer.Sign(e.SigningBytes())
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Verify reports whether e.Signature is a valid signature by pub over
// e's signing bytes. Transport is expected to have done this already on
// the receive path; consensus-internal call sites (e.g. recovery replay
// of a peer's bundled proofs) use it to re-validate bundled envelopes.
func (e *Envelope) Verify(pub crypto.PubKey) bool {
	if len(e.Signature) == 0 {
		return false
	}
	return pub.VerifySignature(e.SigningBytes(), e.Signature)
}
