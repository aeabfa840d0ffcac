// Package mediatypes provides the media type classification shared by the
// scanner, the record store and the thumbnail generator.
//
// This package is a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # Classification
//
// Media type is derived from the file extension when a media item is first
// created:
//
//	mediatypes.Classify("/media/holiday/IMG_0001.JPG") // TypeImage
//	mediatypes.Classify("/media/notes/readme")         // TypeOther
//
// TypeUndefined is reserved for items created without a usable path; the
// scanner upgrades such items when it next sees a classifiable path.
//
// # Thumbnails
//
// Only images whose extension is in DecodableImageExtensions are handed to a
// decoder. HEIC, SVG and ICO are recognized as images but reported as
// unsupported by the thumbnail generator.
package mediatypes
