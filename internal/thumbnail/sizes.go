package thumbnail

import (
	"math"
	"path"
)

// SizeClass is one thumbnail variant, bounded by width.
type SizeClass struct {
	Label string
	Width int
}

// Sizes are the variants produced for every image.
var Sizes = []SizeClass{
	{Label: "small", Width: 160},
	{Label: "medium", Width: 480},
	{Label: "large", Width: 1024},
}

// JPEGQuality is the encoder quality for all variants.
const JPEGQuality = 85

// Key is the store location of a variant.
func Key(size SizeClass, contentHash string) string {
	return path.Join(size.Label, contentHash+".jpg")
}

// Dimensions scales (width, height) to fit targetWidth, preserving aspect
// ratio. Images are never upscaled and no side drops below 1px.
func Dimensions(width, height, targetWidth int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	scale := math.Min(1, float64(targetWidth)/float64(width))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return max(1, w), max(1, h)
}

func largestWidth(sizes []SizeClass) int {
	widest := 0
	for _, s := range sizes {
		widest = max(widest, s.Width)
	}
	return widest
}
