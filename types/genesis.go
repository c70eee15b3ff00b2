// GenesisDoc bootstraps a chain's identity and initial validator set, the
// generalized analogue of this codebase's types.GenesisDoc: the quorum
// threshold signature and initial-slot fields are gone since validator
// membership here is fixed and the dual-primary schedule needs no initial
// proposer to be nominated out of band.
package types

import (
	"io/ioutil"
	"time"

	"github.com/tendermint/tendermint/crypto"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/tempfile"
)

type GenesisValidator struct {
	Address Address       `json:"address"`
	PubKey  crypto.PubKey `json:"pub_key"`
	Name    string        `json:"name,omitempty"`
}

type GenesisDoc struct {
	ChainID     string             `json:"chain_id"`
	GenesisTime time.Time          `json:"genesis_time"`
	Validators  []GenesisValidator `json:"validators"`
}

// ValidatorSet materializes the genesis validator list into the ordered set
// the consensus core indexes by position.
func (g *GenesisDoc) ValidatorSet() *ValidatorSet {
	vals := make([]*Validator, len(g.Validators))
	for i, gv := range g.Validators {
		vals[i] = &Validator{Address: gv.Address, PubKey: gv.PubKey}
	}
	return NewValidatorSet(vals)
}

func (g *GenesisDoc) SaveAs(path string) error {
	bz, err := tmjson.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return tempfile.WriteFileAtomic(path, bz, 0644)
}

func GenesisDocFromFile(path string) (*GenesisDoc, error) {
	bz, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := new(GenesisDoc)
	if err := tmjson.Unmarshal(bz, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
