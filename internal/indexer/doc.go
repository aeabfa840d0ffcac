// Package indexer reconciles a media directory tree with the record store.
//
// A scan cycle walks the tree, hashes new or changed files, links every
// file to a media item by content hash and tags it with its directory
// names. Files not seen during the cycle are soft-deleted afterwards, unused
// derived tags are removed and the path label aggregate is rebuilt.
//
// Cycles are not reentrant: a Scanner runs at most one cycle at a time.
package indexer
