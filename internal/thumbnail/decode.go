package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	// Registered decoders for image.DecodeConfig and imaging.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"media-indexer/internal/filesystem"
	"media-indexer/internal/logging"
)

// ErrUnsupported is returned for sources no registered codec can decode.
var ErrUnsupported = errors.New("unsupported image format")

// MaxImagePixels caps the decoded size; ~80MB in RGBA.
const MaxImagePixels = 20_000_000

// Decoder turns a source file into an image. maxWidth is the widest variant
// that will be produced; decoders may shrink to it while decoding.
type Decoder interface {
	Decode(ctx context.Context, path string, maxWidth int) (image.Image, error)
}

// ImagingDecoder decodes with the registered Go codecs and applies EXIF
// orientation.
type ImagingDecoder struct {
	Retry     filesystem.RetryConfig
	MaxPixels int
}

// NewImagingDecoder returns an ImagingDecoder with default limits.
func NewImagingDecoder() *ImagingDecoder {
	return &ImagingDecoder{Retry: filesystem.DefaultRetryConfig(), MaxPixels: MaxImagePixels}
}

// Decode implements Decoder. Images above MaxPixels are rejected after
// reading only the header.
func (d *ImagingDecoder) Decode(ctx context.Context, path string, _ int) (image.Image, error) {
	f, err := filesystem.OpenWithRetry(ctx, path, d.Retry)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if d.MaxPixels > 0 && cfg.Width*cfg.Height > d.MaxPixels {
		return nil, fmt.Errorf("image %s is %dx%d, above the %d pixel limit", path, cfg.Width, cfg.Height, d.MaxPixels)
	}
	logging.Debug("Decoding %s (%s, %dx%d)", path, format, cfg.Width, cfg.Height)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
