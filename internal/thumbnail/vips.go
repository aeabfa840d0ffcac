package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"media-indexer/internal/logging"
)

var (
	vipsMu      sync.Mutex
	vipsStarted bool
)

// StartVips initializes libvips once and routes its log output into the
// application logger at a matching verbosity.
func StartVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	if vipsStarted {
		return
	}

	level := vipsLogLevel(logging.GetLevel())
	vips.LoggingSettings(func(domain string, l vips.LogLevel, msg string) {
		switch l {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})
	vipsStarted = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
}

// StopVips releases libvips. It is a no-op when StartVips was never called.
func StopVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
	}
}

func vipsLogLevel(l logging.LogLevel) vips.LogLevel {
	switch l {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

// VipsDecoder decodes with libvips, shrinking wide images to maxWidth during
// load. StartVips must have been called.
type VipsDecoder struct{}

// Decode implements Decoder.
func (VipsDecoder) Decode(ctx context.Context, path string, maxWidth int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("%w: vips failed to load %s: %v", ErrUnsupported, path, err)
	}
	defer ref.Close()

	if maxWidth > 0 && ref.Width() > maxWidth {
		w, h := Dimensions(ref.Width(), ref.Height(), maxWidth)
		if err := ref.Thumbnail(w, h, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	// Near-lossless intermediate; the final variants are re-encoded.
	data, _, err := ref.ExportJpeg(&vips.JpegExportParams{Quality: 95, OptimizeCoding: true})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
