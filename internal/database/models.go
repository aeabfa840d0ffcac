package database

import "media-indexer/internal/mediatypes"

// FileEntry is one observed filesystem path. Timestamps are unix seconds (UTC).
type FileEntry struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	ContentHash  string `json:"contentHash"`
	SizeBytes    int64  `json:"sizeBytes"`
	ModifiedTime int64  `json:"modifiedTime"`
	LastSeen     int64  `json:"lastSeen"`
	Deleted      bool   `json:"deleted"`
}

// MediaItem is the content-identity record shared by every path with the
// same hash.
type MediaItem struct {
	ID           int64                `json:"id"`
	ContentHash  string               `json:"contentHash"`
	MediaType    mediatypes.MediaType `json:"mediaType"`
	HasThumbnail bool                 `json:"hasThumbnail"`
	DisplayName  string               `json:"displayName,omitempty"`
}

// Tag is a label attached to media items. Managed tags are curated outside
// the scanner and are never removed by tag cleanup.
type Tag struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Managed bool   `json:"managed"`
}

// PathLabel is one row of the directory-name aggregate.
type PathLabel struct {
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount"`
}
