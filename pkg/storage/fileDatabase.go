package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/i5heu/ouroboros-vault/pkg/index"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/i5heu/ouroboros-vault/pkg/workerPool"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// MinimumFreeGB is checked against the file system of the root path on
	// Open. Zero disables the check.
	MinimumFreeGB uint
	// Logger is used for all vaults. If nil, logrus.New() is used.
	Logger *logrus.Logger
	// WorkerPool opens the vaults listed in the root index. If nil, a pool
	// living for the duration of Open is used.
	WorkerPool *workerPool.WorkerPool
}

// FileDatabase is the root directory of a set of vaults. Its index lists the
// vaults; each vault lives in the sub directory named after its key.
type FileDatabase struct {
	mu     sync.RWMutex
	dir    *IndexedDirectory[*index.DirectoryIndex]
	vaults map[types.EntryKey]*Vault
	log    *logrus.Logger
	config Config
}

type openResult struct {
	key   types.EntryKey
	vault *Vault
	err   error
}

// Open loads or creates the file database at rootPath and opens every vault
// listed in its index. A vault that fails to open is logged and left out.
func Open(ctx context.Context, rootPath string, config Config) (*FileDatabase, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	log := config.Logger

	dir, err := loadOrCreate(ctx, rootPath, directoryCodec, log)
	if err != nil {
		return nil, fmt.Errorf("open file database %s: %w", rootPath, err)
	}

	if err := checkFreeSpace(dir.Path(), config.MinimumFreeGB); err != nil {
		return nil, err
	}
	displayDiskUsage(log, dir.Path())

	db := &FileDatabase{
		dir:    dir,
		vaults: make(map[types.EntryKey]*Vault),
		log:    log,
		config: config,
	}

	keys := dir.IndexEntries()
	if len(keys) == 0 {
		return db, nil
	}

	wp := config.WorkerPool
	if wp == nil {
		wp = workerPool.NewWorkerPool(workerPool.Config{GlobalBuffer: len(keys)})
		defer wp.Close()
	}

	room := wp.CreateRoom(len(keys))
	for _, key := range keys {
		key := key
		room.NewTaskWaitForFreeSlot(func() any {
			v, err := OpenVault(ctx, db.vaultPath(key), key.VaultType, log)
			return openResult{key: key, vault: v, err: err}
		})
	}

	for _, r := range room.Collect() {
		res := r.(openResult)
		if res.err != nil {
			log.WithFields(logrus.Fields{
				"vault": res.key.Key,
				"type":  res.key.VaultType.String(),
			}).Errorf("could not open vault: %v", res.err)
			continue
		}
		db.vaults[res.key] = res.vault
	}

	log.WithFields(logrus.Fields{
		"path":   dir.Path(),
		"vaults": len(db.vaults),
	}).Info("file database opened")

	return db, nil
}

func (db *FileDatabase) vaultPath(key types.EntryKey) string {
	return filepath.Join(db.dir.Path(), key.Key)
}

func (db *FileDatabase) RootPath() string { return db.dir.Path() }

// IndexSize is the number of vaults listed in the root index, including
// vaults that failed to open.
func (db *FileDatabase) IndexSize() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dir.IndexSize()
}

func (db *FileDatabase) HasIndexEntry(key types.EntryKey) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dir.HasIndexEntry(key)
}

func (db *FileDatabase) HasVault(key types.EntryKey) bool {
	_, ok := db.Vault(key)
	return ok
}

func (db *FileDatabase) Vault(key types.EntryKey) (*Vault, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.vaults[key]
	return v, ok
}

// VaultByName finds an open vault by name regardless of its type. Vault names
// are unique across types.
func (db *FileDatabase) VaultByName(name string) (*Vault, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for key, v := range db.vaults {
		if key.Key == name {
			return v, true
		}
	}
	return nil, false
}

// Vaults returns the open vaults ordered by key.
func (db *FileDatabase) Vaults() []*Vault {
	db.mu.RLock()
	defer db.mu.RUnlock()

	vaults := make([]*Vault, 0, len(db.vaults))
	for _, key := range db.dir.IndexEntries() {
		if v, ok := db.vaults[key]; ok {
			vaults = append(vaults, v)
		}
	}
	return vaults
}

func validateVaultKey(key types.EntryKey) error {
	name := key.Key
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidVaultKey, name)
	case name == IndexFileName:
		return fmt.Errorf("%w: %q collides with the index file", ErrInvalidVaultKey, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidVaultKey, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidVaultKey, name)
	case !key.VaultType.Valid():
		return fmt.Errorf("%w: %d", ErrUnknownVaultType, key.VaultType)
	}
	return nil
}

// CreateVault opens or creates the vault directory for key and records it in
// the root index. Creating an existing vault returns it unchanged.
func (db *FileDatabase) CreateVault(ctx context.Context, key types.EntryKey) (*Vault, error) {
	if err := validateVaultKey(key); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.dir.IndexEntries() {
		if existing.Key == key.Key && existing.VaultType != key.VaultType {
			return nil, fmt.Errorf("%w: %q is a %s vault", ErrVaultNameConflict, key.Key, existing.VaultType)
		}
	}

	v, ok := db.vaults[key]
	if !ok {
		var err error
		v, err = OpenVault(ctx, db.vaultPath(key), key.VaultType, db.log)
		if err != nil {
			return nil, err
		}
	}

	if !db.dir.HasIndexEntry(key) {
		next := db.dir.Index().Clone()
		next.PutEntry(key)
		if err := db.dir.commit(ctx, next); err != nil {
			return nil, err
		}
		db.log.WithFields(logrus.Fields{
			"vault": key.Key,
			"type":  key.VaultType.String(),
		}).Info("vault created")
	}

	db.vaults[key] = v
	return v, nil
}

// LoadResource loads an entry. A missing vault or entry is reported as
// (nil, false, nil).
func (db *FileDatabase) LoadResource(ctx context.Context, vaultType types.VaultType, vaultKey, entryKey string) (types.Binary, bool, error) {
	v, ok := db.Vault(types.NewEntryKey(vaultKey, vaultType))
	if !ok {
		return nil, false, nil
	}
	return v.GetEntry(ctx, types.NewEntryKey(entryKey, vaultType))
}

// RegisterResource stores media in the vault. It returns false when the vault
// does not exist or the write failed; failures are logged.
func (db *FileDatabase) RegisterResource(ctx context.Context, vaultType types.VaultType, vaultKey, entryKey string, media types.Binary) bool {
	v, ok := db.Vault(types.NewEntryKey(vaultKey, vaultType))
	if !ok {
		db.log.WithFields(logrus.Fields{
			"vault": vaultKey,
			"type":  vaultType.String(),
		}).Debug("register into unknown vault")
		return false
	}

	if err := v.AddEntry(ctx, types.NewEntryKey(entryKey, vaultType), media); err != nil {
		db.log.WithFields(logrus.Fields{
			"vault": vaultKey,
			"entry": entryKey,
		}).Errorf("could not register resource: %v", err)
		return false
	}
	return true
}
