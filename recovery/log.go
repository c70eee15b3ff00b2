// Package recovery persists the current consensus round so a restarted
// validator can resume without replaying every message it ever saw,
// generalizing store/kv_store.go's tm-db-backed KVStore from an
// account-balance table to a single snapshot blob under one fixed key,
// overwritten on every save.
package recovery

import (
	"fmt"

	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
	"github.com/tendermint/tm-db/goleveldb"

	"dualbft/consensus"
)

const keyPrefix = "dualbft/round/"

// Log is a consensus.Recovery backed by a tm-db key-value store. Only the
// most recently saved snapshot is kept; Save overwrites the prior one
// rather than appending a history, since recovery only ever needs to
// resume the current round.
type Log struct {
	db     tmdb.DB
	logger log.Logger
}

func NewLog(name, dir string, logger log.Logger) (*Log, error) {
	db, err := goleveldb.NewDB(name, dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening recovery log")
	}
	return NewLogWithDB(db, logger), nil
}

func NewLogWithDB(db tmdb.DB, logger log.Logger) *Log {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Log{db: db, logger: logger}
}

func (l *Log) key() []byte {
	return []byte(keyPrefix + "current")
}

// Save atomically overwrites the persisted snapshot.
func (l *Log) Save(snapshot *consensus.Snapshot) error {
	bz, err := tmjson.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshaling recovery snapshot")
	}
	if err := l.db.Set(l.key(), bz); err != nil {
		return errors.Wrap(err, "writing recovery snapshot")
	}
	l.logger.Debug("persisted recovery snapshot", "height", snapshot.Height, "view", snapshot.View)
	return nil
}

// Load returns the last persisted snapshot, or (nil, nil) if none exists.
func (l *Log) Load() (*consensus.Snapshot, error) {
	bz, err := l.db.Get(l.key())
	if err != nil {
		return nil, errors.Wrap(err, "reading recovery snapshot")
	}
	if bz == nil {
		return nil, nil
	}
	snapshot := new(consensus.Snapshot)
	if err := tmjson.Unmarshal(bz, snapshot); err != nil {
		return nil, errors.Wrap(err, "unmarshaling recovery snapshot")
	}
	return snapshot, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) String() string {
	return fmt.Sprintf("recovery.Log{%T}", l.db)
}
