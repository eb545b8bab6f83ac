// Package fileStore reads and writes whole files in fixed size chunks.
package fileStore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/i5heu/ouroboros-vault/internal/chunker"
)

// ReadWhole reads the complete file at path.
func ReadWhole(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		buf.Grow(int(info.Size()))
	}

	c := chunker.NewChunker(f)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		buf.Write(chunk)
	}

	return buf.Bytes(), nil
}

// WriteWhole replaces the file at path with data. The content is written to a
// temporary file in the same directory and renamed into place, so readers see
// either the old or the new content.
func WriteWhole(ctx context.Context, path string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	c := chunker.NewChunker(bytes.NewReader(data))
	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		chunk, nextErr := c.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nextErr
		}
		if _, err = tmp.Write(chunk); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
