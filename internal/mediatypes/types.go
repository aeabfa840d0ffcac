package mediatypes

import (
	"path/filepath"
	"strings"
)

// MediaType is the coarse classification stored on a media item.
type MediaType string

const (
	// TypeImage represents a still image.
	TypeImage MediaType = "image"
	// TypeVideo represents a video file.
	TypeVideo MediaType = "video"
	// TypeAudio represents an audio file.
	TypeAudio MediaType = "audio"
	// TypeDocument represents a text or office document.
	TypeDocument MediaType = "document"
	// TypeArchive represents a compressed archive.
	TypeArchive MediaType = "archive"
	// TypeOther represents a file with an unrecognized extension.
	TypeOther MediaType = "other"
	// TypeUndefined is stored when no path was available to classify from.
	TypeUndefined MediaType = "undefined"
)

// ImageExtensions maps file extensions to whether they are image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// AudioExtensions maps file extensions to whether they are audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".wma":  true,
}

// DocumentExtensions maps file extensions to whether they are documents.
var DocumentExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
}

// ArchiveExtensions maps file extensions to whether they are archives.
var ArchiveExtensions = map[string]bool{
	".zip": true,
	".tar": true,
	".gz":  true,
	".tgz": true,
	".bz2": true,
	".xz":  true,
	".7z":  true,
	".rar": true,
}

// DecodableImageExtensions lists the image formats the thumbnail generator
// has a decoder for. Other image types are classified but not thumbnailed.
var DecodableImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// GetMediaType returns the MediaType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns TypeOther if the extension is not recognized.
func GetMediaType(ext string) MediaType {
	switch {
	case ImageExtensions[ext]:
		return TypeImage
	case VideoExtensions[ext]:
		return TypeVideo
	case AudioExtensions[ext]:
		return TypeAudio
	case DocumentExtensions[ext]:
		return TypeDocument
	case ArchiveExtensions[ext]:
		return TypeArchive
	}
	return TypeOther
}

// Classify returns the MediaType for a file path based on its extension.
// Matching is case-insensitive. An empty path yields TypeUndefined.
func Classify(path string) MediaType {
	if path == "" {
		return TypeUndefined
	}
	return GetMediaType(strings.ToLower(filepath.Ext(path)))
}

// IsDecodableImage reports whether the thumbnail generator can decode path.
func IsDecodableImage(path string) bool {
	return DecodableImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeDocument, TypeArchive, TypeOther, TypeUndefined:
		return true
	}
	return false
}
