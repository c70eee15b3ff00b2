package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigPopulatesComponents(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Moniker != "anonymous" {
		t.Fatalf("Moniker = %q, want %q", cfg.Moniker, "anonymous")
	}
	if cfg.Consensus.MillisecondsPerBlock == 0 {
		t.Fatalf("Consensus.MillisecondsPerBlock should have a non-zero default")
	}
	if cfg.P2P == nil {
		t.Fatalf("P2P should not be nil")
	}
	if cfg.RPC.ListenAddress == "" {
		t.Fatalf("RPC.ListenAddress should have a default")
	}
}

func TestAbsPathResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootDir = "/home/validator"

	if got := cfg.WalletKeyFilePath(); got != filepath.Join("/home/validator", cfg.WalletKeyFile) {
		t.Fatalf("WalletKeyFilePath() = %q, want relative path joined with RootDir", got)
	}

	cfg.LedgerDir = "/absolute/ledger"
	if got := cfg.LedgerDirPath(); got != "/absolute/ledger" {
		t.Fatalf("LedgerDirPath() = %q, want the absolute path unchanged", got)
	}
}

func TestLoadParsesTomlFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
moniker = "validator-1"

[consensus]
msec_per_block = 1500
max_tx_per_block = 256
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("writing config.toml: %v", err)
	}

	cfg, err := Load(dir, "config.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Moniker != "validator-1" {
		t.Fatalf("Moniker = %q, want %q", cfg.Moniker, "validator-1")
	}
	if cfg.Consensus.MillisecondsPerBlock != 1500 {
		t.Fatalf("Consensus.MillisecondsPerBlock = %d, want 1500", cfg.Consensus.MillisecondsPerBlock)
	}
	if cfg.RootDir != dir {
		t.Fatalf("RootDir = %q, want %q", cfg.RootDir, dir)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "missing.toml"); err == nil {
		t.Fatalf("Load should fail when the config file does not exist")
	}
}
