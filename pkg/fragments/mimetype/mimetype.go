// Package mimetype is the registry of media types the fragments service
// accepts, and of the file extensions each stored type can be rendered as.
// It is a pure lookup table with no state.
package mimetype

import (
	"mime"
	"sort"
	"strings"
)

// Supported media types.
const (
	TextPlain       = "text/plain"
	TextMarkdown    = "text/markdown"
	TextHTML        = "text/html"
	TextCSV         = "text/csv"
	ApplicationJSON = "application/json"
	ApplicationYAML = "application/yaml"
	ImagePNG        = "image/png"
	ImageJPEG       = "image/jpeg"
	ImageWebP       = "image/webp"
	ImageAVIF       = "image/avif"
)

// extensions maps each supported stored type to the extensions it can be
// requested as. The output type for a given (stored type, extension) pair
// is owned by the convert package; this table only answers "is the pairing
// allowed at all".
var extensions = map[string][]string{
	TextPlain:       {"txt"},
	TextMarkdown:    {"md", "txt", "html"},
	TextHTML:        {"html", "txt"},
	TextCSV:         {"csv", "txt", "json"},
	ApplicationJSON: {"json", "txt", "yaml", "yml"},
	ApplicationYAML: {"yaml", "txt"},
	ImagePNG:        {"png", "jpeg", "jpg", "webp", "avif"},
	ImageJPEG:       {"png", "jpeg", "jpg", "webp", "avif"},
	ImageWebP:       {"png", "jpeg", "jpg", "webp", "avif"},
	ImageAVIF:       {"png", "jpeg", "jpg", "webp", "avif"},
}

// Parse extracts the bare media type from a Content-Type header value,
// discarding parameters such as charset. The result is lowercased.
func Parse(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	return mediaType, nil
}

// IsSupported reports whether the given Content-Type header value names a
// media type fragments can store. Parameters are tolerated and ignored.
func IsSupported(contentType string) bool {
	mediaType, err := Parse(contentType)
	if err != nil {
		return false
	}
	_, ok := extensions[mediaType]
	return ok
}

// IsText reports whether the media type holds textual content. Parameters
// are tolerated.
func IsText(contentType string) bool {
	mediaType, err := Parse(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == ApplicationJSON ||
		mediaType == ApplicationYAML
}

// Extensions returns the extensions the given stored type can be requested
// as, sorted, or nil if the type is unsupported.
func Extensions(mediaType string) []string {
	exts, ok := extensions[mediaType]
	if !ok {
		return nil
	}
	out := make([]string, len(exts))
	copy(out, exts)
	sort.Strings(out)
	return out
}

// AllowsExtension reports whether the stored type may be requested with
// the given extension.
func AllowsExtension(mediaType, ext string) bool {
	for _, e := range extensions[mediaType] {
		if e == ext {
			return true
		}
	}
	return false
}

// Supported returns all supported media types, sorted.
func Supported() []string {
	types := make([]string, 0, len(extensions))
	for t := range extensions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
