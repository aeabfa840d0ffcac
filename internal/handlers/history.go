package handlers

import (
	"sync"
	"sync/atomic"

	"media-indexer/internal/indexer"
	"media-indexer/internal/thumbnail"
)

// History keeps the outcome of the most recent scan and thumbnail runs.
// The serve loop records into it; the status handlers read from it.
type History struct {
	mu            sync.RWMutex
	scan          *indexer.ScanReport
	scanErr       string
	scanSucceeded bool
	thumbnails    *thumbnail.Report
	thumbnailsErr string

	force atomic.Bool
}

// NewHistory returns an empty History with no forced thumbnail run pending.
func NewHistory() *History {
	return &History{}
}

// RecordScan stores the result of a scan cycle. A nil report (the cycle was
// rejected before starting) keeps the previous one.
func (h *History) RecordScan(report *indexer.ScanReport, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if report != nil {
		h.scan = report
	}
	h.scanErr = errString(err)
	if err == nil {
		h.scanSucceeded = true
	}
}

// RecordThumbnails stores the result of a generation run.
func (h *History) RecordThumbnails(report *thumbnail.Report, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if report != nil {
		h.thumbnails = report
	}
	h.thumbnailsErr = errString(err)
}

// Ready reports whether at least one scan cycle has completed successfully.
func (h *History) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scanSucceeded
}

// RequestForce makes the next thumbnail run regenerate existing variants.
func (h *History) RequestForce() {
	h.force.Store(true)
}

// TakeForce returns and clears a pending force request.
func (h *History) TakeForce() bool {
	return h.force.Swap(false)
}

type snapshot struct {
	scan          *indexer.ScanReport
	scanErr       string
	scanSucceeded bool
	thumbnails    *thumbnail.Report
	thumbnailsErr string
}

func (h *History) snapshot() snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return snapshot{
		scan:          h.scan,
		scanErr:       h.scanErr,
		scanSucceeded: h.scanSucceeded,
		thumbnails:    h.thumbnails,
		thumbnailsErr: h.thumbnailsErr,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
