// Package backup exports vaults to xz compressed tar archives and restores
// them again.
package backup

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/i5heu/ouroboros-vault/pkg/storage"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/ulikunitz/xz"
)

const (
	paxKey         = "OUROBOROS.key"
	paxVaultType   = "OUROBOROS.vaultType"
	paxExtension   = "OUROBOROS.extension"
	paxAspectRatio = "OUROBOROS.aspectRatio"
)

var ErrInvalidArchive = errors.New("backup: invalid archive")

// BackupVault writes every entry of v to w and returns the number of entries
// written. Each entry is a tar file named after its media key; the entry key
// and metadata travel in PAX records.
func BackupVault(ctx context.Context, v *storage.Vault, w io.Writer) (int, error) {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("backup: xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	count := 0
	for _, key := range v.Entries() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		media, ok, err := v.GetEntry(ctx, key)
		if err != nil {
			return count, err
		}
		if !ok {
			continue // replaced concurrently
		}
		meta, _ := v.MetaData(key)

		records := map[string]string{
			paxKey:       key.Key,
			paxVaultType: key.VaultType.String(),
		}
		if meta.Extension != "" {
			records[paxExtension] = meta.Extension
		}
		if meta.Type == types.Image {
			records[paxAspectRatio] = strconv.FormatFloat(meta.AspectRatio, 'g', -1, 64)
		}

		data := media.Media().Bytes
		hdr := &tar.Header{
			Typeflag:   tar.TypeReg,
			Name:       meta.MediaKey,
			Mode:       0o644,
			Size:       int64(len(data)),
			ModTime:    time.Now(),
			Format:     tar.FormatPAX,
			PAXRecords: records,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return count, fmt.Errorf("backup: %s: %w", key, err)
		}
		if _, err := tw.Write(data); err != nil {
			return count, fmt.Errorf("backup: %s: %w", key, err)
		}
		count++
	}

	if err := tw.Close(); err != nil {
		return count, err
	}
	return count, xw.Close()
}

// RestoreVault adds every entry of an archive written by BackupVault to v.
// Entries of another vault type are rejected.
func RestoreVault(ctx context.Context, v *storage.Vault, r io.Reader) (int, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	tr := tar.NewReader(xr)

	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		media, key, err := entryFromHeader(hdr, tr, v.Type())
		if err != nil {
			return count, err
		}
		if err := v.AddEntry(ctx, key, media); err != nil {
			return count, err
		}
		count++
	}
}

func entryFromHeader(hdr *tar.Header, r io.Reader, vaultType types.VaultType) (types.Binary, types.EntryKey, error) {
	name, ok := hdr.PAXRecords[paxKey]
	if !ok {
		return nil, types.EntryKey{}, fmt.Errorf("%w: %s has no entry key", ErrInvalidArchive, hdr.Name)
	}
	archived, err := types.ParseVaultType(hdr.PAXRecords[paxVaultType])
	if err != nil {
		return nil, types.EntryKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, hdr.Name, err)
	}
	if archived != vaultType {
		return nil, types.EntryKey{}, fmt.Errorf("%w: %s is a %s entry, vault is %s", storage.ErrVaultTypeMismatch, name, archived, vaultType)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, types.EntryKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, hdr.Name, err)
	}

	meta := types.MetaData{Type: vaultType, Extension: hdr.PAXRecords[paxExtension]}
	if s, ok := hdr.PAXRecords[paxAspectRatio]; ok {
		meta.AspectRatio, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, types.EntryKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, hdr.Name, err)
		}
	}

	media, err := types.BuildBinary(types.NewFileBinary(data), meta)
	if err != nil {
		return nil, types.EntryKey{}, err
	}
	return media, types.NewEntryKey(name, vaultType), nil
}
