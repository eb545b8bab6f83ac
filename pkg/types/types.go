package types

import (
	"errors"
	"fmt"
	"math"
)

// DefaultAspectRatio is used for image entries registered without one.
const DefaultAspectRatio = 1.0

var ErrUnknownVaultType = errors.New("types: unknown vault type")

// MetaData holds the derived facts about a stored entry. AspectRatio is only
// meaningful when Type is Image.
type MetaData struct {
	Type        VaultType
	MediaKey    string
	Extension   string
	AspectRatio float64
}

// NewMetaData builds the type specific metadata of an entry.
func NewMetaData(vaultType VaultType, mediaKey, extension string, aspectRatio float64) (MetaData, error) {
	switch vaultType {
	case Media:
		return MetaData{Type: Media, MediaKey: mediaKey, Extension: extension}, nil
	case Image:
		if aspectRatio <= 0 || math.IsNaN(aspectRatio) || math.IsInf(aspectRatio, 0) {
			aspectRatio = DefaultAspectRatio
		}
		return MetaData{Type: Image, MediaKey: mediaKey, Extension: extension, AspectRatio: aspectRatio}, nil
	}
	return MetaData{}, fmt.Errorf("%w: %d", ErrUnknownVaultType, vaultType)
}

// FileBinary is the raw content of a stored file.
type FileBinary struct {
	Bytes []byte
	Size  int
}

func NewFileBinary(b []byte) FileBinary {
	return FileBinary{Bytes: b, Size: len(b)}
}

type MediaBinary struct {
	FileBinary
	Extension string
}

type ImageBinary struct {
	MediaBinary
	AspectRatio float64
}

// Binary is implemented by MediaBinary and ImageBinary.
type Binary interface {
	Media() MediaBinary
}

func (m MediaBinary) Media() MediaBinary { return m }

func (i ImageBinary) Media() MediaBinary { return i.MediaBinary }

// MetaDataFor derives the metadata an entry of the given vault type is stored
// with. Image data registered into a media vault loses its aspect ratio.
func MetaDataFor(vaultType VaultType, entryKey EntryKey, b Binary) (MetaData, error) {
	media := b.Media()
	var aspectRatio float64
	switch v := b.(type) {
	case ImageBinary:
		aspectRatio = v.AspectRatio
	case *ImageBinary:
		aspectRatio = v.AspectRatio
	}
	extension := SanitizeExtension(media.Extension)
	return NewMetaData(vaultType, MediaKey(entryKey, extension), extension, aspectRatio)
}

// BuildBinary combines raw file content and its metadata into a typed media object.
func BuildBinary(file FileBinary, meta MetaData) (Binary, error) {
	media := MediaBinary{FileBinary: file, Extension: meta.Extension}
	switch meta.Type {
	case Media:
		return media, nil
	case Image:
		return ImageBinary{MediaBinary: media, AspectRatio: meta.AspectRatio}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownVaultType, meta.Type)
}
