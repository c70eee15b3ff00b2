package types

import (
	"path/filepath"
	"testing"
	"time"

	"dualbft/crypto/blskey"
)

func testGenesisDoc() *GenesisDoc {
	priv := blskey.GenPrivKey()
	pub := priv.PubKey()
	return &GenesisDoc{
		ChainID:     "test-chain",
		GenesisTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Validators: []GenesisValidator{
			{Address: AddressFromPubKey(pub), PubKey: pub, Name: "val-0"},
		},
	}
}

func TestGenesisDocValidatorSetSize(t *testing.T) {
	doc := testGenesisDoc()
	vs := doc.ValidatorSet()
	if vs.Size() != 1 {
		t.Fatalf("ValidatorSet().Size() = %d, want 1", vs.Size())
	}
}

func TestGenesisDocSaveAsThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")

	doc := testGenesisDoc()
	if err := doc.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	loaded, err := GenesisDocFromFile(path)
	if err != nil {
		t.Fatalf("GenesisDocFromFile: %v", err)
	}
	if loaded.ChainID != doc.ChainID {
		t.Fatalf("loaded.ChainID = %q, want %q", loaded.ChainID, doc.ChainID)
	}
	if len(loaded.Validators) != 1 {
		t.Fatalf("loaded.Validators len = %d, want 1", len(loaded.Validators))
	}
	if !loaded.Validators[0].Address.Equal(doc.Validators[0].Address) {
		t.Fatalf("loaded validator address does not match saved one")
	}
}

func TestGenesisDocFromFileMissingFile(t *testing.T) {
	if _, err := GenesisDocFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("GenesisDocFromFile on a missing file should return an error")
	}
}
