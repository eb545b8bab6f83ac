package keyValStore

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

type StoreConfig struct {
	Paths            []string // only the first path is used
	MinimumFreeSpace int      // in GB, 0 disables the check
	InMemory         bool     // keep everything in memory, Paths is ignored
	Logger           *logrus.Logger
}

// KeyValStore is a small badger database used for the server's own state,
// such as the accepted API keys.
type KeyValStore struct {
	config       StoreConfig
	log          *logrus.Logger
	badgerDB     *badger.DB
	readCounter  uint64
	writeCounter uint64
}

func NewKeyValStore(config StoreConfig) (*KeyValStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	err := config.checkConfig()
	if err != nil {
		return nil, fmt.Errorf("error checking config for KeyValStore: %w", err)
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Paths[0])
		opts.ValueLogFileSize = 1024 * 1024 * 16
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening key value store: %w", err)
	}

	config.Logger.WithFields(logrus.Fields{
		"paths":    config.Paths,
		"inMemory": config.InMemory,
	}).Debug("key value store opened")

	return &KeyValStore{
		config:   config,
		log:      config.Logger,
		badgerDB: db,
	}, nil
}

func (k *KeyValStore) Write(key []byte, content []byte) error {
	atomic.AddUint64(&k.writeCounter, 1)

	err := k.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(key, content)
	})
	if err != nil {
		return fmt.Errorf("error writing key %q: %w", key, err)
	}
	return nil
}

func (k *KeyValStore) Exists(key []byte) (bool, error) {
	atomic.AddUint64(&k.readCounter, 1)
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking key %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *KeyValStore) Delete(key []byte) error {
	atomic.AddUint64(&k.writeCounter, 1)
	err := k.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("error deleting key %q: %w", key, err)
	}
	return nil
}

// WriteBatch writes all key value pairs in one transaction.
func (k *KeyValStore) WriteBatch(batch [][2][]byte) error {
	wb := k.badgerDB.NewWriteBatch()
	defer wb.Cancel()

	for _, kv := range batch {
		atomic.AddUint64(&k.writeCounter, 1)
		if err := wb.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("error writing batch: %w", err)
		}
	}

	return wb.Flush()
}

// GetItemsWithPrefix returns all keys and values with the given prefix.
func (k *KeyValStore) GetItemsWithPrefix(prefix []byte) ([][][]byte, error) {
	var keysAndValues [][][]byte
	atomic.AddUint64(&k.readCounter, 1)
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			keysAndValues = append(keysAndValues, [][]byte{k, v})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error iterating prefix %q: %w", prefix, err)
	}
	return keysAndValues, nil
}

// Operations returns the number of reads and writes since the store was opened.
func (k *KeyValStore) Operations() (reads, writes uint64) {
	return atomic.LoadUint64(&k.readCounter), atomic.LoadUint64(&k.writeCounter)
}

func (k *KeyValStore) Clean() error {
	if k.config.InMemory {
		return nil
	}

	err := k.badgerDB.Sync()
	if err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}

	err = k.badgerDB.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("error cleaning db: %w", err)
	}
	k.log.Debug("key value store cleaned")

	return nil
}

func (k *KeyValStore) Close() error {
	cleanErr := k.Clean()
	reads, writes := k.Operations()
	k.log.WithFields(logrus.Fields{
		"reads":  reads,
		"writes": writes,
	}).Debug("key value store closed")
	return errors.Join(cleanErr, k.badgerDB.Close())
}
