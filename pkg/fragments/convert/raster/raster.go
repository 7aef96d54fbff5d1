// Package raster is the default convert.ImageCodec: it decodes png, jpeg,
// webp and avif input and re-encodes into any of the same formats.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// DefaultJPEGQuality is used when a Codec is constructed with a zero
// quality setting.
const DefaultJPEGQuality = 90

// Config options for the codec.
type Config struct {
	JPEGQuality int // 1..100, defaults to DefaultJPEGQuality
}

// Codec implements convert.ImageCodec on top of the stdlib image codecs
// plus the gen2brain webp/avif encoders. Importing those packages also
// registers their decoders with image.Decode, so input sniffing covers all
// four formats.
type Codec struct {
	jpegQuality int
}

// New creates a Codec with default settings.
func New() *Codec {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a Codec with the given settings.
func NewWithConfig(cfg Config) *Codec {
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Codec{jpegQuality: quality}
}

// Convert decodes the image bytes and re-encodes them in the requested
// format ("png", "jpeg", "webp" or "avif"). The input encoding is sniffed
// from the bytes themselves.
func (c *Codec) Convert(ctx context.Context, data []byte, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, sourceFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode %s from %s: %w", format, sourceFormat, err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: c.jpegQuality})
	case "webp":
		return webp.Encode(w, img)
	case "avif":
		return avif.Encode(w, img)
	default:
		return errors.New("unknown target format " + format)
	}
}
