// Adapted from this codebase's types/validator_set.go: an ordered validator
// list indexed by position (V = [v0...v(n-1)]) rather than
// tendermint's voting-power-weighted set.
package types

import "github.com/tendermint/tendermint/crypto"

type ValidatorSet struct {
	Validators []*Validator
}

func NewValidatorSet(vals []*Validator) *ValidatorSet {
	cp := make([]*Validator, len(vals))
	copy(cp, vals)
	return &ValidatorSet{Validators: cp}
}

func (vs *ValidatorSet) Size() int {
	if vs == nil {
		return 0
	}
	return len(vs.Validators)
}

// F is the maximum number of Byzantine validators tolerated: f = floor((n-1)/3).
func (vs *ValidatorSet) F() int {
	n := vs.Size()
	if n == 0 {
		return 0
	}
	return (n - 1) / 3
}

// M is the commit/response quorum size: n - f.
func (vs *ValidatorSet) M() int {
	return vs.Size() - vs.F()
}

func (vs *ValidatorSet) GetByIndex(i int) *Validator {
	if i < 0 || i >= vs.Size() {
		return nil
	}
	return vs.Validators[i]
}

func (vs *ValidatorSet) IndexOf(addr Address) int {
	for i, v := range vs.Validators {
		if v.Address.Equal(addr) {
			return i
		}
	}
	return -1
}

func (vs *ValidatorSet) IndexOfPubKey(pub crypto.PubKey) int {
	for i, v := range vs.Validators {
		if v.PubKey.Equals(pub) {
			return i
		}
	}
	return -1
}

func (vs *ValidatorSet) Hash() Hash {
	bz := make([][]byte, vs.Size())
	for i, v := range vs.Validators {
		bz[i] = v.PubKey.Bytes()
	}
	return merkleHash(bz)
}
