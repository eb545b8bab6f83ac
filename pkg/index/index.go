// Package index holds the in-memory form of the index files kept in every
// directory of a file database: the root directory index listing vaults, and
// the vault index mapping entry keys to their metadata.
package index

import (
	"fmt"

	"github.com/i5heu/ouroboros-vault/internal/binaryCoder"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/tidwall/btree"
)

// Index is the common read surface of both index variants.
type Index interface {
	// Key is the immutable index key, the basename of the owning directory.
	Key() string
	// Entries returns the keys in a stable order (sorted by EntryKey.Less).
	Entries() []types.EntryKey
	Size() int
	HasEntry(key types.EntryKey) bool
	Encode() ([]byte, error)
}

func lessEntryKey(a, b types.EntryKey) bool {
	return a.Less(b)
}

// DirectoryIndex is a set of child vault keys.
type DirectoryIndex struct {
	key     string
	entries *btree.BTreeG[types.EntryKey]
}

func NewDirectoryIndex(key string) *DirectoryIndex {
	return &DirectoryIndex{
		key:     key,
		entries: btree.NewBTreeG(lessEntryKey),
	}
}

func (d *DirectoryIndex) Key() string { return d.key }

func (d *DirectoryIndex) Size() int { return d.entries.Len() }

func (d *DirectoryIndex) HasEntry(key types.EntryKey) bool {
	_, ok := d.entries.Get(key)
	return ok
}

func (d *DirectoryIndex) Entries() []types.EntryKey {
	keys := make([]types.EntryKey, 0, d.entries.Len())
	d.entries.Scan(func(k types.EntryKey) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// PutEntry adds key to the set; adding a present key is a no-op.
func (d *DirectoryIndex) PutEntry(key types.EntryKey) {
	d.entries.Set(key)
}

// Clone returns an independent copy.
func (d *DirectoryIndex) Clone() *DirectoryIndex {
	return &DirectoryIndex{key: d.key, entries: d.entries.Copy()}
}

func (d *DirectoryIndex) Encode() ([]byte, error) {
	rec := binaryCoder.IndexRecord{
		Kind:     binaryCoder.DirectoryKind,
		IndexKey: d.key,
		Entries:  make([]binaryCoder.EntryRecord, 0, d.entries.Len()),
	}
	d.entries.Scan(func(k types.EntryKey) bool {
		rec.Entries = append(rec.Entries, binaryCoder.EntryRecord{Key: k})
		return true
	})
	return binaryCoder.IndexToByte(rec)
}

type vaultEntry struct {
	key  types.EntryKey
	meta types.MetaData
}

func lessVaultEntry(a, b vaultEntry) bool {
	return a.key.Less(b.key)
}

// VaultIndex maps entry keys to the metadata of the stored media.
type VaultIndex struct {
	key     string
	entries *btree.BTreeG[vaultEntry]
}

func NewVaultIndex(key string) *VaultIndex {
	return &VaultIndex{
		key:     key,
		entries: btree.NewBTreeG(lessVaultEntry),
	}
}

func (v *VaultIndex) Key() string { return v.key }

func (v *VaultIndex) Size() int { return v.entries.Len() }

func (v *VaultIndex) HasEntry(key types.EntryKey) bool {
	_, ok := v.entries.Get(vaultEntry{key: key})
	return ok
}

func (v *VaultIndex) Entries() []types.EntryKey {
	keys := make([]types.EntryKey, 0, v.entries.Len())
	v.entries.Scan(func(e vaultEntry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

// Entry returns the metadata stored for key.
func (v *VaultIndex) Entry(key types.EntryKey) (types.MetaData, bool) {
	e, ok := v.entries.Get(vaultEntry{key: key})
	return e.meta, ok
}

// PutEntry inserts or overwrites the metadata of key.
func (v *VaultIndex) PutEntry(key types.EntryKey, meta types.MetaData) {
	v.entries.Set(vaultEntry{key: key, meta: meta})
}

// Clone returns an independent copy.
func (v *VaultIndex) Clone() *VaultIndex {
	return &VaultIndex{key: v.key, entries: v.entries.Copy()}
}

func (v *VaultIndex) Encode() ([]byte, error) {
	rec := binaryCoder.IndexRecord{
		Kind:     binaryCoder.VaultKind,
		IndexKey: v.key,
		Entries:  make([]binaryCoder.EntryRecord, 0, v.entries.Len()),
	}
	v.entries.Scan(func(e vaultEntry) bool {
		meta := e.meta
		rec.Entries = append(rec.Entries, binaryCoder.EntryRecord{Key: e.key, Meta: &meta})
		return true
	})
	return binaryCoder.IndexToByte(rec)
}

// DecodeDirectory decodes a root directory index.
func DecodeDirectory(data []byte) (*DirectoryIndex, error) {
	rec, err := binaryCoder.ByteToIndex(data)
	if err != nil {
		return nil, err
	}
	if rec.Kind != binaryCoder.DirectoryKind {
		return nil, fmt.Errorf("%w: expected directory index, got %s", binaryCoder.ErrMalformed, rec.Kind)
	}

	d := NewDirectoryIndex(rec.IndexKey)
	for _, e := range rec.Entries {
		d.PutEntry(e.Key)
	}
	return d, nil
}

// DecodeVault decodes a vault index.
func DecodeVault(data []byte) (*VaultIndex, error) {
	rec, err := binaryCoder.ByteToIndex(data)
	if err != nil {
		return nil, err
	}
	if rec.Kind != binaryCoder.VaultKind {
		return nil, fmt.Errorf("%w: expected vault index, got %s", binaryCoder.ErrMalformed, rec.Kind)
	}

	v := NewVaultIndex(rec.IndexKey)
	for _, e := range rec.Entries {
		v.PutEntry(e.Key, *e.Meta)
	}
	return v, nil
}
