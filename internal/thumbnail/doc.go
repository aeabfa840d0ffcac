// Package thumbnail generates fixed-size JPEG previews for indexed images.
//
// [Generator.GenerateAll] walks image media items that lack thumbnails (or
// all of them when forced), decodes the first live file for each content
// hash and writes one JPEG per [SizeClass] to a [Store] under
// "<label>/<contentHash>.jpg". An item is flagged as having thumbnails only
// when every size class is present.
//
// Decoding uses github.com/disintegration/imaging with golang.org/x/image
// codecs registered, or libvips through govips when enabled.
package thumbnail
