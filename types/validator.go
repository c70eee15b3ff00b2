// Adapted from this codebase's types/validator.go (fork of
// tendermint/types/validator.go); trimmed of voting-power/proposer-priority
// fields the dual-primary schedule computes deterministically instead.
package types

import (
	"errors"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
)

type Validator struct {
	Address Address       `json:"address"`
	PubKey  crypto.PubKey `json:"pub_key"`
}

func NewValidator(pubKey crypto.PubKey) *Validator {
	return &Validator{
		Address: AddressFromPubKey(pubKey),
		PubKey:  pubKey,
	}
}

func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.PubKey == nil {
		return errors.New("validator has no public key")
	}
	if len(v.Address) != crypto.AddressSize {
		return fmt.Errorf("validator address is the wrong size: %v", v.Address)
	}
	return nil
}

func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v}", v.Address, v.PubKey)
}
