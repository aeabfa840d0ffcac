package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-indexer/internal/indexer"
	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
	"media-indexer/internal/scheduler"
	"media-indexer/internal/startup"
	"media-indexer/internal/thumbnail"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

const probeTimeout = 2 * time.Second

// StatusResponse is the /status document.
type StatusResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Jobs []scheduler.JobStatus `json:"jobs"`

	LastScan            *indexer.ScanReport `json:"lastScan,omitempty"`
	LastScanError       string              `json:"lastScanError,omitempty"`
	LastThumbnails      *thumbnail.Report   `json:"lastThumbnails,omitempty"`
	LastThumbnailsError string              `json:"lastThumbnailsError,omitempty"`

	Stats      *metrics.Stats `json:"stats,omitempty"`
	StatsError string         `json:"statsError,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Status reports job history, the last run reports and store totals.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.history.snapshot()

	response := StatusResponse{
		Ready:               snap.scanSucceeded,
		Version:             startup.Version,
		Uptime:              time.Since(h.started).Round(time.Second).String(),
		Jobs:                h.jobs.Status(),
		LastScan:            snap.scan,
		LastScanError:       snap.scanErr,
		LastThumbnails:      snap.thumbnails,
		LastThumbnailsError: snap.thumbnailsErr,
		GoVersion:           runtime.Version(),
		NumGoroutine:        runtime.NumGoroutine(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()
	stats, err := h.store.GetStats(ctx)
	if err != nil {
		logging.Warn("Status: failed to read store stats: %v", err)
		response.StatsError = err.Error()
	} else {
		response.Stats = &stats
	}

	switch {
	case !snap.scanSucceeded:
		response.Status = statusStarting
	case snap.scanErr != "" || err != nil:
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	writeJSON(w, http.StatusOK, response)
}

// LivenessCheck always returns 200 while the process serves requests.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, http.StatusOK, "alive")
}

// ReadinessCheck returns 200 once a scan has completed and the record store
// answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !h.history.Ready() {
		writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logging.Warn("Readiness: record store unavailable: %v", err)
		writeJSONStatus(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}

	writeJSONStatus(w, http.StatusOK, "ready")
}

// GetVersion returns the application version and build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, startup.GetBuildInfo())
}
