// Package convert implements the fragments content-type conversion engine.
//
// The engine is a static compatibility matrix: each supported stored type
// maps to the set of extensions it can be rendered as, and each pairing
// names its output media type and transform. Textual transforms run in
// process; raster transforms are delegated to an ImageCodec collaborator.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/fragsvc/fragments/pkg/fragments/mimetype"
)

// Error values returned by the engine. The fragments package re-exports
// them so callers need only one taxonomy.
var (
	// ErrUnsupported indicates the requested extension is not valid for
	// the stored type (or is not recognized at all).
	ErrUnsupported = errors.New("conversion not supported")

	// ErrImage indicates the raster codec collaborator failed.
	ErrImage = errors.New("image conversion failed")
)

// ImageCodec re-encodes raster image bytes into a target format. Format is
// one of "png", "jpeg", "webp", "avif". Implementations decode the input
// by sniffing its actual encoding; the caller's stored type is advisory.
type ImageCodec interface {
	Convert(ctx context.Context, data []byte, format string) ([]byte, error)
}

// transform rewrites fragment bytes for one (stored type, extension)
// pairing. Identity pairings use a nil transform.
type transform func(data []byte) ([]byte, error)

// rule is one cell of the compatibility matrix.
type rule struct {
	outputType string
	fn         transform
}

// matrix maps stored media type -> requested extension -> rule, for the
// textual types. Image types are dispatched separately to the codec.
var matrix = map[string]map[string]rule{
	mimetype.TextPlain: {
		"txt": {outputType: mimetype.TextPlain},
	},
	mimetype.TextMarkdown: {
		"md":   {outputType: mimetype.TextPlain},
		"txt":  {outputType: mimetype.TextPlain},
		"html": {outputType: mimetype.TextHTML, fn: markdownToHTML},
	},
	mimetype.TextHTML: {
		"html": {outputType: mimetype.TextHTML},
		"txt":  {outputType: mimetype.TextPlain},
	},
	mimetype.TextCSV: {
		"csv":  {outputType: mimetype.TextPlain},
		"txt":  {outputType: mimetype.TextPlain},
		"json": {outputType: mimetype.ApplicationJSON, fn: textToJSONString},
	},
	mimetype.ApplicationJSON: {
		"json": {outputType: mimetype.ApplicationJSON},
		"txt":  {outputType: mimetype.TextPlain},
		"yaml": {outputType: mimetype.ApplicationYAML, fn: jsonToYAML},
		"yml":  {outputType: mimetype.ApplicationYAML, fn: jsonToYAML},
	},
	mimetype.ApplicationYAML: {
		"yaml": {outputType: mimetype.ApplicationYAML},
		"txt":  {outputType: mimetype.TextPlain},
	},
}

// imageFormats maps requested extensions to codec formats and output types.
var imageFormats = map[string]struct {
	format     string
	outputType string
}{
	"png":  {"png", mimetype.ImagePNG},
	"jpeg": {"jpeg", mimetype.ImageJPEG},
	"jpg":  {"jpeg", mimetype.ImageJPEG},
	"webp": {"webp", mimetype.ImageWebP},
	"avif": {"avif", mimetype.ImageAVIF},
}

// Converter applies the compatibility matrix to fragment bytes.
type Converter struct {
	codec ImageCodec
}

// Option configures a Converter.
type Option func(*Converter)

// WithImageCodec sets the raster codec used for image/* conversions.
// Without one, image conversions fail with ErrImage.
func WithImageCodec(codec ImageCodec) Option {
	return func(c *Converter) {
		c.codec = codec
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert renders data of the given stored type as the requested
// extension, returning the output media type and bytes. An empty extension
// returns the input unchanged under its stored type. A pairing outside the
// matrix fails with ErrUnsupported; raster codec failures are wrapped into
// ErrImage rather than propagated raw.
func (c *Converter) Convert(ctx context.Context, storedType string, data []byte, ext string) (string, []byte, error) {
	mediaType, err := mimetype.Parse(storedType)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad stored type %q", ErrUnsupported, storedType)
	}

	if ext == "" {
		return storedType, data, nil
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	if strings.HasPrefix(mediaType, "image/") {
		return c.convertImage(ctx, mediaType, data, ext)
	}

	r, ok := matrix[mediaType][ext]
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot represent %s as .%s", ErrUnsupported, mediaType, ext)
	}

	if r.fn == nil {
		return r.outputType, data, nil
	}
	if !utf8.Valid(data) {
		return "", nil, fmt.Errorf("%w: %s fragment is not valid UTF-8", ErrUnsupported, mediaType)
	}
	out, err := r.fn(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return r.outputType, out, nil
}

func (c *Converter) convertImage(ctx context.Context, mediaType string, data []byte, ext string) (string, []byte, error) {
	target, ok := imageFormats[ext]
	if !ok || !mimetype.AllowsExtension(mediaType, ext) {
		return "", nil, fmt.Errorf("%w: cannot represent %s as .%s", ErrUnsupported, mediaType, ext)
	}
	if c.codec == nil {
		return "", nil, fmt.Errorf("%w: no image codec configured", ErrImage)
	}
	out, err := c.codec.Convert(ctx, data, target.format)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrImage, err)
	}
	return target.outputType, out, nil
}

// CanConvert reports whether the stored type can be rendered as the given
// extension. An empty extension is always allowed (identity read).
func CanConvert(storedType, ext string) bool {
	mediaType, err := mimetype.Parse(storedType)
	if err != nil {
		return false
	}
	if ext == "" {
		return true
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if strings.HasPrefix(mediaType, "image/") {
		_, ok := imageFormats[ext]
		return ok && mimetype.AllowsExtension(mediaType, ext)
	}
	_, ok := matrix[mediaType][ext]
	return ok
}

// markdownParser is shared: its configuration never changes and goldmark
// parsers are safe for concurrent use.
var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))

func markdownToHTML(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownParser.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// jsonToYAML re-encodes a JSON document as YAML. Well-formed input
// round-trips losslessly; malformed JSON is rejected.
func jsonToYAML(data []byte) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

// textToJSONString encodes the whole text as a single JSON string value.
func textToJSONString(data []byte) ([]byte, error) {
	out, err := json.Marshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}
