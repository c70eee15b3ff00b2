package privval

import (
	"path/filepath"
	"testing"
)

func TestGenFileWalletThenLoadFileWalletRoundTrips(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "priv_validator_key.json")

	gen := GenFileWallet(keyPath)
	gen.Save()

	loaded := LoadFileWallet(keyPath)
	if !loaded.Address().Equal(gen.Address()) {
		t.Fatalf("loaded wallet address %v != generated %v", loaded.Address(), gen.Address())
	}
	if !loaded.PubKey().Equals(gen.PubKey()) {
		t.Fatalf("loaded wallet pubkey does not match generated pubkey")
	}
}

func TestLoadOrGenFileWalletGeneratesOnce(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "priv_validator_key.json")

	first := LoadOrGenFileWallet(keyPath)
	second := LoadOrGenFileWallet(keyPath)

	if !first.Address().Equal(second.Address()) {
		t.Fatalf("LoadOrGenFileWallet regenerated a new key instead of loading the existing one")
	}
}

func TestWalletSignVerifiesAgainstPubKey(t *testing.T) {
	dir := t.TempDir()
	w := GenFileWallet(filepath.Join(dir, "priv_validator_key.json"))

	msg := []byte("round-42-commit")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !w.PubKey().VerifySignature(msg, sig) {
		t.Fatalf("signature does not verify against the wallet's own pubkey")
	}
}
