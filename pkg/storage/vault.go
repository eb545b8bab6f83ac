package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/i5heu/ouroboros-vault/internal/fileStore"
	"github.com/i5heu/ouroboros-vault/pkg/index"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
)

// Vault is a directory holding media entries of one vault type. Writes are
// serialized by the vault lock and also exclude reads, so a read always sees
// the blob and index entry of the last completed write.
type Vault struct {
	mu        sync.RWMutex
	dir       *IndexedDirectory[*index.VaultIndex]
	vaultType types.VaultType
	log       *logrus.Logger
}

// OpenVault loads or creates the vault rooted at path.
func OpenVault(ctx context.Context, path string, vaultType types.VaultType, log *logrus.Logger) (*Vault, error) {
	if !vaultType.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVaultType, vaultType)
	}
	if log == nil {
		log = logrus.New()
	}

	dir, err := loadOrCreate(ctx, path, vaultCodec, log)
	if err != nil {
		return nil, err
	}

	return &Vault{
		dir:       dir,
		vaultType: vaultType,
		log:       log,
	}, nil
}

func (v *Vault) Type() types.VaultType { return v.vaultType }

func (v *Vault) Path() string { return v.dir.Path() }

// Key is the vault's entry in the root index.
func (v *Vault) Key() types.EntryKey {
	return types.NewEntryKey(v.dir.Key(), v.vaultType)
}

func (v *Vault) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dir.IndexSize()
}

func (v *Vault) HasEntry(key types.EntryKey) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dir.HasIndexEntry(key)
}

func (v *Vault) Entries() []types.EntryKey {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dir.IndexEntries()
}

// MetaData returns the index metadata of key.
func (v *Vault) MetaData(key types.EntryKey) (types.MetaData, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dir.Index().Entry(key)
}

func (v *Vault) mediaPath(meta types.MetaData) string {
	return filepath.Join(v.dir.Path(), meta.MediaKey)
}

// AddEntry stores media under key. The blob is written first and the index
// is only updated and persisted once the blob is on disk. If persisting the
// index fails, the blob stays behind as an unaddressable orphan.
func (v *Vault) AddEntry(ctx context.Context, key types.EntryKey, media types.Binary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.VaultType != v.vaultType {
		return fmt.Errorf("%w: entry %s in %s vault", ErrVaultTypeMismatch, key, v.vaultType)
	}
	if key.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntryKey)
	}

	meta, err := types.MetaDataFor(v.vaultType, key, media)
	if err != nil {
		return err
	}
	if meta.MediaKey == IndexFileName {
		return fmt.Errorf("%w: %q collides with the index file", ErrInvalidEntryKey, key.Key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	previous, hadPrevious := v.dir.Index().Entry(key)

	if err := fileStore.WriteWhole(ctx, v.mediaPath(meta), media.Media().Bytes); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: write %s: %v", ErrStorageIO, meta.MediaKey, err)
	}

	next := v.dir.Index().Clone()
	next.PutEntry(key, meta)
	if err := v.dir.commit(ctx, next); err != nil {
		return err
	}

	if hadPrevious && previous.MediaKey != meta.MediaKey && !v.mediaKeyInUse(previous.MediaKey) {
		if err := os.Remove(v.mediaPath(previous)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			v.log.WithFields(logrus.Fields{
				"vault":    v.dir.Key(),
				"mediaKey": previous.MediaKey,
			}).Warnf("could not remove replaced blob: %v", err)
		}
	}

	v.log.WithFields(logrus.Fields{
		"vault":    v.dir.Key(),
		"entry":    key.Key,
		"mediaKey": meta.MediaKey,
		"size":     media.Media().Size,
	}).Debug("entry added")

	return nil
}

// mediaKeyInUse reports whether any index entry still points at mediaKey.
// Sanitized keys can collide, e.g. "a/b" and "a-b". Caller holds the lock.
func (v *Vault) mediaKeyInUse(mediaKey string) bool {
	idx := v.dir.Index()
	for _, k := range idx.Entries() {
		if meta, ok := idx.Entry(k); ok && meta.MediaKey == mediaKey {
			return true
		}
	}
	return false
}

// GetEntry loads the media stored under key. A key missing from the index is
// reported as (nil, false, nil).
func (v *Vault) GetEntry(ctx context.Context, key types.EntryKey) (types.Binary, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	meta, ok := v.dir.Index().Entry(key)
	if !ok {
		return nil, false, nil
	}

	data, err := fileStore.ReadWhole(ctx, v.mediaPath(meta))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, fmt.Errorf("%w: read %s: %v", ErrStorageIO, meta.MediaKey, err)
	}

	media, err := types.BuildBinary(types.NewFileBinary(data), meta)
	if err != nil {
		return nil, false, err
	}
	return media, true, nil
}
