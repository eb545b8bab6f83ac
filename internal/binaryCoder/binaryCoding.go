package binaryCoder

import (
	"fmt"
	"math"

	"github.com/i5heu/ouroboros-vault/pkg/types"
	"google.golang.org/protobuf/encoding/protowire"
)

type IndexKind byte

const (
	DirectoryKind IndexKind = 1
	VaultKind     IndexKind = 2
)

func (k IndexKind) valid() bool {
	return k == DirectoryKind || k == VaultKind
}

func (k IndexKind) String() string {
	switch k {
	case DirectoryKind:
		return "directory"
	case VaultKind:
		return "vault"
	}
	return "unknown"
}

// IndexRecord is the flat, serializable form of an index.
type IndexRecord struct {
	Kind     IndexKind
	IndexKey string
	Entries  []EntryRecord
}

// EntryRecord is one index entry. Meta is only set for vault indexes.
type EntryRecord struct {
	Key  types.EntryKey
	Meta *types.MetaData
}

// index message
const (
	fieldIndexKey protowire.Number = 1
	fieldEntry    protowire.Number = 2
)

// entry message
const (
	fieldKey         protowire.Number = 1
	fieldVaultType   protowire.Number = 2
	fieldMetaType    protowire.Number = 3
	fieldMediaKey    protowire.Number = 4
	fieldExtension   protowire.Number = 5
	fieldAspectRatio protowire.Number = 6
)

func appendIndex(b []byte, rec IndexRecord) ([]byte, error) {
	b = protowire.AppendTag(b, fieldIndexKey, protowire.BytesType)
	b = protowire.AppendString(b, rec.IndexKey)

	for _, e := range rec.Entries {
		if rec.Kind == VaultKind && e.Meta == nil {
			return nil, fmt.Errorf("binaryCoder: vault entry %s without metadata", e.Key)
		}
		b = protowire.AppendTag(b, fieldEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, appendEntry(nil, e, rec.Kind))
	}
	return b, nil
}

func appendEntry(b []byte, e EntryRecord, kind IndexKind) []byte {
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendString(b, e.Key.Key)
	b = protowire.AppendTag(b, fieldVaultType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Key.VaultType))

	if kind != VaultKind {
		return b
	}

	b = protowire.AppendTag(b, fieldMetaType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Meta.Type))
	b = protowire.AppendTag(b, fieldMediaKey, protowire.BytesType)
	b = protowire.AppendString(b, e.Meta.MediaKey)
	b = protowire.AppendTag(b, fieldExtension, protowire.BytesType)
	b = protowire.AppendString(b, e.Meta.Extension)
	b = protowire.AppendTag(b, fieldAspectRatio, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(e.Meta.AspectRatio))
	return b
}

func consumeIndex(b []byte, kind IndexKind) (IndexRecord, error) {
	rec := IndexRecord{Kind: kind}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return rec, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldIndexKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			rec.IndexKey = v
			b = b[n:]
		case num == fieldEntry && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			e, err := consumeEntry(v, kind)
			if err != nil {
				return rec, err
			}
			rec.Entries = append(rec.Entries, e)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return rec, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	return rec, nil
}

func consumeEntry(b []byte, kind IndexKind) (EntryRecord, error) {
	var e EntryRecord
	var meta types.MetaData
	var vaultType, metaType uint64

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldKey && typ == protowire.BytesType:
			e.Key.Key, n = protowire.ConsumeString(b)
		case num == fieldVaultType && typ == protowire.VarintType:
			vaultType, n = protowire.ConsumeVarint(b)
		case num == fieldMetaType && typ == protowire.VarintType:
			metaType, n = protowire.ConsumeVarint(b)
		case num == fieldMediaKey && typ == protowire.BytesType:
			meta.MediaKey, n = protowire.ConsumeString(b)
		case num == fieldExtension && typ == protowire.BytesType:
			meta.Extension, n = protowire.ConsumeString(b)
		case num == fieldAspectRatio && typ == protowire.Fixed64Type:
			var bits uint64
			bits, n = protowire.ConsumeFixed64(b)
			meta.AspectRatio = math.Float64frombits(bits)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return e, protowire.ParseError(n)
		}
		b = b[n:]
	}

	e.Key.VaultType = types.VaultType(vaultType)
	if !e.Key.VaultType.Valid() {
		return e, fmt.Errorf("entry %q: invalid vault type %d", e.Key.Key, vaultType)
	}

	if kind == VaultKind {
		meta.Type = types.VaultType(metaType)
		if !meta.Type.Valid() {
			return e, fmt.Errorf("entry %q: invalid metadata type %d", e.Key.Key, metaType)
		}
		if meta.MediaKey == "" {
			return e, fmt.Errorf("entry %q: missing media key", e.Key.Key)
		}
		e.Meta = &meta
	}

	return e, nil
}
