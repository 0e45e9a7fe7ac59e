package store

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/model"
)

const versionKey = "playmix/version"

// BadgerConfig represents BadgerDB configuration parameters
type BadgerConfig struct {
	Truncate bool `toml:"truncate"`
	FileIO   bool `toml:"file_io"`
}

type Config struct {
	// Dir is a directory to keep database files
	Dir    string        `toml:"dir"`
	Badger *BadgerConfig `toml:"badger"`
}

type Badger struct {
	db *badger.DB
}

var _ Storage = (*Badger)(nil)

func NewBadger(config *Config) (*Badger, error) {
	var (
		dir = config.Dir
	)

	log.Infof("opening database %q", dir)

	// Make sure database directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not mkdir database dir")
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(log.StandardLogger()).
		WithTruncate(true)

	if config.Badger != nil {
		opts.Truncate = config.Badger.Truncate
		if config.Badger.FileIO {
			opts.ValueLogLoadingMode = options.FileIO
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	storage := &Badger{db: db}

	if err := db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(storage.fullKey(versionKey))
		if err == badger.ErrKeyNotFound {
			return txn.Set(storage.fullKey(versionKey), []byte(strconv.Itoa(CurrentVersion)))
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "failed to read database version")
	}

	return storage, nil
}

func (b *Badger) Close() error {
	log.Debug("closing database")
	return b.db.Close()
}

func (b *Badger) Version() (int, error) {
	var version = -1

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.fullKey(versionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			version, err = strconv.Atoi(string(val))
			return err
		})
	})

	return version, err
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.fullKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return model.ErrNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return value, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return errors.Wrapf(txn.Set(b.fullKey(key), value), "failed to set %q", key)
	})
}

func (b *Badger) Remove(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(b.fullKey(key))
		if err != nil && err != badger.ErrKeyNotFound {
			return errors.Wrapf(err, "failed to delete %q", key)
		}
		return nil
	})
}

func (b *Badger) WalkKeys(_ context.Context, prefix string, cb func(key string) error) error {
	full := b.fullKey(prefix)

	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = full
		opts.PrefetchValues = false

		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			if err := cb(key[len(b.prefix()):]); err != nil {
				return err
			}
		}

		return nil
	})
}

func (b *Badger) prefix() string {
	return fmt.Sprintf("playmix/v%d/", CurrentVersion)
}

func (b *Badger) fullKey(key string) []byte {
	return []byte(b.prefix() + key)
}
