package types

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDto = errors.New("types: invalid media dto")

// MediaBinaryDto is the wire representation of a stored entry shown to API
// consumers.
type MediaBinaryDto struct {
	Base64      string   `json:"base64"`
	Size        int      `json:"size"`
	Mime        string   `json:"mime"`
	AspectRatio *float64 `json:"aspectRatio,omitempty"`
}

// UploadDto is the body accepted when registering an entry. The content is
// either a base64 string or an array of byte values.
type UploadDto struct {
	Bytes       []int   `json:"bytes,omitempty"`
	Base64      string  `json:"base64,omitempty"`
	Size        int     `json:"size"`
	Extension   string  `json:"extension,omitempty"`
	Mime        string  `json:"mime,omitempty"`
	AspectRatio float64 `json:"aspectRatio,omitempty"`
}

// ToDto converts a typed media object into its wire representation.
func ToDto(b Binary) (MediaBinaryDto, error) {
	media := b.Media()
	dto := MediaBinaryDto{
		Base64: base64.StdEncoding.EncodeToString(media.Bytes),
		Size:   media.Size,
		Mime:   MimeType(media.Extension),
	}

	switch v := b.(type) {
	case MediaBinary, *MediaBinary:
	case ImageBinary:
		ar := v.AspectRatio
		dto.AspectRatio = &ar
	case *ImageBinary:
		ar := v.AspectRatio
		dto.AspectRatio = &ar
	default:
		return MediaBinaryDto{}, fmt.Errorf("%w: %T", ErrUnknownVaultType, b)
	}

	return dto, nil
}

// Content decodes the uploaded bytes.
func (d UploadDto) Content() ([]byte, error) {
	if d.Base64 != "" && len(d.Bytes) > 0 {
		return nil, fmt.Errorf("%w: both bytes and base64 set", ErrInvalidDto)
	}

	var content []byte
	if d.Base64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(d.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDto, err)
		}
		content = decoded
	} else {
		content = make([]byte, len(d.Bytes))
		for i, v := range d.Bytes {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range: %d", ErrInvalidDto, i, v)
			}
			content[i] = byte(v)
		}
	}

	if d.Size != 0 && d.Size != len(content) {
		return nil, fmt.Errorf("%w: size %d does not match content length %d", ErrInvalidDto, d.Size, len(content))
	}

	return content, nil
}

// Binary turns the upload into a typed media object for a vault of the given
// type. defaultExtension is used when neither extension nor mime is set.
func (d UploadDto) Binary(vaultType VaultType, defaultExtension string) (Binary, error) {
	content, err := d.Content()
	if err != nil {
		return nil, err
	}

	extension := d.Extension
	if extension == "" && d.Mime != "" {
		extension = ExtensionFor(d.Mime)
	}
	if extension == "" {
		extension = defaultExtension
	}
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	media := MediaBinary{FileBinary: NewFileBinary(content), Extension: extension}
	switch vaultType {
	case Media:
		return media, nil
	case Image:
		aspectRatio := d.AspectRatio
		if aspectRatio <= 0 {
			aspectRatio = DefaultAspectRatio
		}
		return ImageBinary{MediaBinary: media, AspectRatio: aspectRatio}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownVaultType, vaultType)
}
