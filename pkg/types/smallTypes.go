package types

import (
	"fmt"
	"strings"
)

// VaultType selects how the entries of a vault are described and rebuilt.
type VaultType int

const (
	Media VaultType = iota
	Image
)

// VaultTypes lists every known vault type.
var VaultTypes = []VaultType{Media, Image}

func (v VaultType) String() string {
	switch v {
	case Media:
		return "media"
	case Image:
		return "image"
	}
	return "unknown"
}

func (v VaultType) Valid() bool {
	return v == Media || v == Image
}


// ParseVaultType accepts the names produced by String, case-insensitive, and
// "img" for Image.
func ParseVaultType(s string) (VaultType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "img" {
		return Image, nil
	}
	for _, vt := range VaultTypes {
		if vt.String() == name {
			return vt, nil
		}
	}
	return Media, fmt.Errorf("%w: %q", ErrUnknownVaultType, s)
}

// EntryKey identifies one logical item inside one vault type namespace.
// It is comparable and can be used as a map key directly.
type EntryKey struct {
	Key       string
	VaultType VaultType
}

func NewEntryKey(key string, vaultType VaultType) EntryKey {
	return EntryKey{Key: key, VaultType: vaultType}
}

func (k EntryKey) String() string {
	return k.VaultType.String() + ":" + k.Key
}

// Less orders keys by name first and vault type second.
func (k EntryKey) Less(other EntryKey) bool {
	if k.Key != other.Key {
		return k.Key < other.Key
	}
	return k.VaultType < other.VaultType
}

// Sanitize replaces every character outside [A-Za-z0-9] with '-'.
func Sanitize(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// SanitizeExtension keeps a single leading dot and sanitizes the rest.
func SanitizeExtension(extension string) string {
	extension = strings.TrimLeft(extension, ".")
	if extension == "" {
		return ""
	}
	return "." + Sanitize(extension)
}

// MediaKey is the on-disk file name of an entry.
func MediaKey(entryKey EntryKey, extension string) string {
	return Sanitize(entryKey.Key) + SanitizeExtension(extension)
}
