package storage

import (
	"errors"

	"github.com/i5heu/ouroboros-vault/pkg/types"
)

var (
	// ErrIndexDecode means an index file exists but cannot be decoded. It is
	// fatal for the directory owning the index; the file is never replaced.
	ErrIndexDecode = errors.New("storage: index decode failed")
	// ErrStorageIO wraps disk read and write failures.
	ErrStorageIO = errors.New("storage: i/o failure")
	// ErrDirectoryCreate means the directory of an index could not be created.
	ErrDirectoryCreate = errors.New("storage: directory create failed")

	ErrInvalidVaultKey   = errors.New("storage: invalid vault key")
	ErrInvalidEntryKey   = errors.New("storage: invalid entry key")
	ErrVaultTypeMismatch = errors.New("storage: vault type mismatch")
	ErrVaultNameConflict = errors.New("storage: vault name already used by another vault type")
	ErrInsufficientSpace = errors.New("storage: not enough free disk space")
	ErrUnknownVaultType  = types.ErrUnknownVaultType
)
