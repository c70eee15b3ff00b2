// Package privval implements the consensus.Wallet signer as a private key
// persisted to disk, adapted from privval/file.go's FilePVKey/FilePV: the
// threshold-key derivation step is dropped (each validator's key is
// generated independently here) but the atomic-write-on-save pattern and
// load/gen-or-load helpers are kept unchanged.
package privval

import (
	"fmt"
	"io/ioutil"

	"github.com/tendermint/tendermint/crypto"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/libs/tempfile"

	"dualbft/crypto/blskey"
	"dualbft/types"
)

// FileWalletKey is the on-disk representation of a validator signing key.
type FileWalletKey struct {
	Address types.Address  `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	PrivKey crypto.PrivKey `json:"priv_key"`

	filePath string
}

func (k FileWalletKey) Save() {
	if k.filePath == "" {
		panic("cannot save wallet key: filePath not set")
	}
	bz, err := tmjson.MarshalIndent(k, "", "  ")
	if err != nil {
		panic(err)
	}
	if err := tempfile.WriteFileAtomic(k.filePath, bz, 0600); err != nil {
		panic(err)
	}
}

// FileWallet is a consensus.Wallet backed by a key persisted to disk.
type FileWallet struct {
	Key FileWalletKey
}

func NewFileWallet(privKey crypto.PrivKey, keyFilePath string) *FileWallet {
	return &FileWallet{
		Key: FileWalletKey{
			Address:  types.AddressFromPubKey(privKey.PubKey()),
			PubKey:   privKey.PubKey(),
			PrivKey:  privKey,
			filePath: keyFilePath,
		},
	}
}

// GenFileWallet generates a new validator key but does not persist it.
func GenFileWallet(keyFilePath string) *FileWallet {
	return NewFileWallet(blskey.GenPrivKey(), keyFilePath)
}

// LoadFileWallet loads a validator key from keyFilePath, exiting the
// process if it cannot be read or parsed.
func LoadFileWallet(keyFilePath string) *FileWallet {
	bz, err := ioutil.ReadFile(keyFilePath)
	if err != nil {
		tmos.Exit(err.Error())
	}
	key := FileWalletKey{}
	if err := tmjson.Unmarshal(bz, &key); err != nil {
		tmos.Exit(fmt.Sprintf("reading wallet key from %v: %v", keyFilePath, err))
	}
	key.PubKey = key.PrivKey.PubKey()
	key.Address = types.AddressFromPubKey(key.PubKey)
	key.filePath = keyFilePath
	return &FileWallet{Key: key}
}

// LoadOrGenFileWallet loads a wallet from keyFilePath, generating and
// persisting a new one if it does not exist.
func LoadOrGenFileWallet(keyFilePath string) *FileWallet {
	if tmos.FileExists(keyFilePath) {
		return LoadFileWallet(keyFilePath)
	}
	w := GenFileWallet(keyFilePath)
	w.Save()
	return w
}

func (w *FileWallet) Address() types.Address { return w.Key.Address }
func (w *FileWallet) PubKey() crypto.PubKey  { return w.Key.PubKey }

func (w *FileWallet) Sign(msg []byte) ([]byte, error) {
	return w.Key.PrivKey.Sign(msg)
}

func (w *FileWallet) Save() { w.Key.Save() }
