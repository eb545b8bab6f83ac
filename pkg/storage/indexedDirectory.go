package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i5heu/ouroboros-vault/internal/fileStore"
	"github.com/i5heu/ouroboros-vault/pkg/index"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
)

// IndexFileName is the name of the index file inside every indexed directory.
const IndexFileName = "index"

// IndexedDirectory pairs a directory with the index describing its content.
// It is not safe for concurrent use; owners guard it with their own lock.
type IndexedDirectory[T index.Index] struct {
	path  string
	index T
}

// indexCodec tells LoadOrCreate how to build and decode one index variant.
type indexCodec[T index.Index] struct {
	create func(key string) T
	decode func(data []byte) (T, error)
}

var (
	directoryCodec = indexCodec[*index.DirectoryIndex]{
		create: index.NewDirectoryIndex,
		decode: index.DecodeDirectory,
	}
	vaultCodec = indexCodec[*index.VaultIndex]{
		create: index.NewVaultIndex,
		decode: index.DecodeVault,
	}
)

// loadOrCreate reads path/index. A missing index is created empty together with
// its directory; an index that exists but does not decode is an ErrIndexDecode.
func loadOrCreate[T index.Index](ctx context.Context, path string, codec indexCodec[T], log *logrus.Logger) (*IndexedDirectory[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	indexPath := filepath.Join(path, IndexFileName)

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryCreate, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorageIO, path, err)
	}

	data, err := fileStore.ReadWhole(ctx, indexPath)
	if err == nil {
		idx, decodeErr := codec.decode(data)
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIndexDecode, indexPath, decodeErr)
		}
		if idx.Key() != filepath.Base(path) {
			log.WithFields(logrus.Fields{
				"path":     path,
				"indexKey": idx.Key(),
			}).Warn("index key does not match directory name")
		}
		return &IndexedDirectory[T]{path: path, index: idx}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageIO, indexPath, err)
	}

	return create(ctx, path, codec, log)
}

func create[T index.Index](ctx context.Context, path string, codec indexCodec[T], log *logrus.Logger) (*IndexedDirectory[T], error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryCreate, path, err)
	}

	d := &IndexedDirectory[T]{path: path}
	if err := d.commit(ctx, codec.create(filepath.Base(path))); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"path": path}).Info("created index")
	return d, nil
}

// commit persists next to path/index and makes it the current index. On
// failure the current index stays untouched.
func (d *IndexedDirectory[T]) commit(ctx context.Context, next T) error {
	data, err := next.Encode()
	if err != nil {
		return fmt.Errorf("%w: encode index %s: %v", ErrStorageIO, d.path, err)
	}

	if err := fileStore.WriteWhole(ctx, filepath.Join(d.path, IndexFileName), data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: write index %s: %v", ErrStorageIO, d.path, err)
	}

	d.index = next
	return nil
}

func (d *IndexedDirectory[T]) Path() string { return d.path }

// Key is the basename of the directory.
func (d *IndexedDirectory[T]) Key() string { return filepath.Base(d.path) }

// Index returns the current in-memory index.
func (d *IndexedDirectory[T]) Index() T { return d.index }

func (d *IndexedDirectory[T]) IndexSize() int { return d.index.Size() }

func (d *IndexedDirectory[T]) HasIndexEntry(key types.EntryKey) bool {
	return d.index.HasEntry(key)
}

func (d *IndexedDirectory[T]) IndexEntries() []types.EntryKey {
	return d.index.Entries()
}
