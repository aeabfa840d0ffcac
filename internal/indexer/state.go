package indexer

import (
	"context"
	"path/filepath"
	"sync"

	"media-indexer/internal/database"
	"media-indexer/internal/mediatypes"
)

type tagPair struct {
	mediaItemID int64
	tagID       int64
}

// runState memoizes lookups for one scan cycle and is discarded afterwards.
// It also serializes media item creation per content hash so concurrent
// workers observing the same new content create exactly one item.
type runState struct {
	mu        sync.Mutex
	media     map[string]*database.MediaItem
	tags      map[string]int64
	attached  map[tagPair]struct{}
	hashLocks map[string]*sync.Mutex
}

func newRunState() *runState {
	return &runState{
		media:     make(map[string]*database.MediaItem),
		tags:      make(map[string]int64),
		attached:  make(map[tagPair]struct{}),
		hashLocks: make(map[string]*sync.Mutex),
	}
}

// lockHash acquires the per-hash lock and returns its release function.
func (st *runState) lockHash(hash string) func() {
	st.mu.Lock()
	l, ok := st.hashLocks[hash]
	if !ok {
		l = &sync.Mutex{}
		st.hashLocks[hash] = l
	}
	st.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (st *runState) cachedMedia(hash string) *database.MediaItem {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.media[hash]
}

// mediaItem resolves the media item for hash, creating it on first sight.
// The type is classified from path; an item still stored as undefined is
// upgraded when path yields a known type.
func (st *runState) mediaItem(ctx context.Context, store Store, hash, path string) (item *database.MediaItem, created bool, err error) {
	mediaType := mediatypes.Classify(path)

	if item = st.cachedMedia(hash); item != nil && !needsUpgrade(item, mediaType) {
		return item, false, nil
	}

	unlock := st.lockHash(hash)
	defer unlock()

	item = st.cachedMedia(hash)
	if item == nil {
		item, created, err = store.GetOrCreateMediaItem(ctx, hash, mediaType, filepath.Base(path))
		if err != nil {
			return nil, false, err
		}
	}

	if needsUpgrade(item, mediaType) {
		if _, err := store.UpgradeUndefinedMediaType(ctx, item.ID, mediaType); err != nil {
			return nil, false, err
		}
		upgraded := *item
		upgraded.MediaType = mediaType
		item = &upgraded
	}

	st.mu.Lock()
	st.media[hash] = item
	st.mu.Unlock()
	return item, created, nil
}

func needsUpgrade(item *database.MediaItem, mediaType mediatypes.MediaType) bool {
	return item.MediaType == mediatypes.TypeUndefined && mediaType != mediatypes.TypeUndefined
}

// tagID resolves a tag name to its id, creating an unmanaged tag if needed.
func (st *runState) tagID(ctx context.Context, store Store, name string) (int64, error) {
	st.mu.Lock()
	id, ok := st.tags[name]
	st.mu.Unlock()
	if ok {
		return id, nil
	}

	tag, err := store.EnsureTag(ctx, name)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	st.tags[name] = tag.ID
	st.mu.Unlock()
	return tag.ID, nil
}

// attach associates a tag with a media item once per cycle.
func (st *runState) attach(ctx context.Context, store Store, mediaItemID, tagID int64) error {
	key := tagPair{mediaItemID, tagID}

	st.mu.Lock()
	_, done := st.attached[key]
	st.mu.Unlock()
	if done {
		return nil
	}

	if err := store.AttachTag(ctx, mediaItemID, tagID); err != nil {
		return err
	}

	st.mu.Lock()
	st.attached[key] = struct{}{}
	st.mu.Unlock()
	return nil
}
