package ouroboros

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/ouroboros-vault/internal/keyValStore"
	"github.com/i5heu/ouroboros-vault/pkg/auth"
	"github.com/i5heu/ouroboros-vault/pkg/storage"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/i5heu/ouroboros-vault/pkg/workerPool"
	"github.com/sirupsen/logrus"
)

const keyStoreDir = ".keys"

var (
	ErrNotStarted = errors.New("ouroboros: vault server not started")
	ErrClosed     = errors.New("ouroboros: vault server closed")
)

// OuroborosVault owns the file database, the API key store and the worker
// pool shared by them.
type OuroborosVault struct {
	log    *logrus.Logger
	config Config

	db       *storage.FileDatabase
	kv       *keyValStore.KeyValStore
	keys     *auth.StoreKeySet
	wp       *workerPool.WorkerPool
	started  atomic.Bool
	closed   atomic.Bool
	startMu  sync.Mutex
	closeOne sync.Once
}

// New validates conf. It does no I/O; call Start to open the database.
func New(conf Config) (*OuroborosVault, error) {
	if len(conf.Paths) == 0 {
		return nil, fmt.Errorf("at least one path must be provided in config")
	}
	if conf.Logger == nil {
		conf.Logger = defaultLogger()
	}
	for _, v := range conf.Vaults {
		if !v.Type.Valid() {
			return nil, fmt.Errorf("vault %q: %w", v.Name, types.ErrUnknownVaultType)
		}
	}
	return &OuroborosVault{
		log:    conf.Logger,
		config: conf,
	}, nil
}

// Start opens the file database, creates the configured vaults and opens the
// API key store. Calling Start again after a success is a no-op.
func (ou *OuroborosVault) Start(ctx context.Context) error {
	ou.startMu.Lock()
	defer ou.startMu.Unlock()

	if ou.closed.Load() {
		return ErrClosed
	}
	if ou.started.Load() {
		return nil
	}

	root := ou.config.Paths[0]
	wp := workerPool.NewWorkerPool(workerPool.Config{WorkerCount: ou.config.WorkerCount})

	db, err := storage.Open(ctx, root, storage.Config{
		MinimumFreeGB: ou.config.MinimumFreeGB,
		Logger:        ou.log,
		WorkerPool:    wp,
	})
	if err != nil {
		wp.Close()
		return err
	}

	for _, v := range ou.config.Vaults {
		if _, err := db.CreateVault(ctx, types.NewEntryKey(v.Name, v.Type)); err != nil {
			wp.Close()
			return fmt.Errorf("create vault %q: %w", v.Name, err)
		}
	}

	kvConfig := keyValStore.StoreConfig{
		InMemory: ou.config.KeyStoreInMemory,
		Logger:   ou.log,
	}
	if !kvConfig.InMemory {
		path := ou.config.KeyStorePath
		if path == "" {
			path = filepath.Join(db.RootPath(), keyStoreDir)
		}
		kvConfig.Paths = []string{path}
	}
	kv, err := keyValStore.NewKeyValStore(kvConfig)
	if err != nil {
		wp.Close()
		return fmt.Errorf("init key store: %w", err)
	}

	ou.db = db
	ou.kv = kv
	ou.keys = auth.NewStoreKeySet(kv, ou.log)
	ou.wp = wp
	ou.started.Store(true)

	ou.log.WithFields(logrus.Fields{
		"path":   db.RootPath(),
		"vaults": len(db.Vaults()),
	}).Info("OuroborosVault started")
	return nil
}

// Run starts the server, blocks until ctx is cancelled and closes it again.
func (ou *OuroborosVault) Run(ctx context.Context) error {
	if err := ou.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ou.Close(shutdownCtx)
}

func (ou *OuroborosVault) ready() error {
	if ou.closed.Load() {
		return ErrClosed
	}
	if !ou.started.Load() {
		return ErrNotStarted
	}
	return nil
}

// DB returns the file database.
func (ou *OuroborosVault) DB() (*storage.FileDatabase, error) {
	if err := ou.ready(); err != nil {
		return nil, err
	}
	return ou.db, nil
}

// Keys returns the persistent API key store.
func (ou *OuroborosVault) Keys() (*auth.StoreKeySet, error) {
	if err := ou.ready(); err != nil {
		return nil, err
	}
	return ou.keys, nil
}

// KeySet is the set of API keys accepted by the management endpoints: the
// stored keys plus those of the secrets file if one is configured.
func (ou *OuroborosVault) KeySet() (auth.KeySet, error) {
	if err := ou.ready(); err != nil {
		return nil, err
	}
	if ou.config.SecretsPath == "" {
		return ou.keys, nil
	}
	if _, err := os.Stat(ou.config.SecretsPath); err != nil {
		ou.log.WithField("path", ou.config.SecretsPath).Warnf("secrets file not readable: %v", err)
	}
	return auth.AnyKeySet{ou.keys, auth.FileKeySet{Path: ou.config.SecretsPath}}, nil
}

// Close releases the key store and the worker pool. It is idempotent.
func (ou *OuroborosVault) Close(ctx context.Context) error {
	var closeErr error
	ou.closeOne.Do(func() {
		ou.startMu.Lock()
		defer ou.startMu.Unlock()
		ou.closed.Store(true)

		if ou.kv != nil {
			if err := ou.kv.Close(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("close key store: %w", err))
			}
		}
		if ou.wp != nil {
			ou.wp.Close()
		}
		if err := ctx.Err(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}

		ou.log.Info("OuroborosVault closed")
	})
	return closeErr
}
