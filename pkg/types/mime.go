package types

import "strings"

const DefaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
}

// MimeType maps a file extension (with leading dot) to its MIME type.
func MimeType(extension string) string {
	if m, ok := mimeTypes[strings.ToLower(extension)]; ok {
		return m
	}
	return DefaultMimeType
}

// ExtensionFor is the inverse of MimeType. It returns "" for unknown types.
func ExtensionFor(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/jpeg" {
		return ".jpg"
	}
	for ext, m := range mimeTypes {
		if m == mimeType {
			return ext
		}
	}
	return ""
}
