package handlers

import (
	"net/http"
	"strconv"

	"media-indexer/internal/logging"
)

// TriggerScan queues a scan cycle. Requests made while one is pending are
// merged.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	h.trigger(w, JobScan)
}

// TriggerThumbnails queues a thumbnail run. force=true regenerates variants
// that already exist.
func (h *Handlers) TriggerThumbnails(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("force"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSONError(w, "invalid force parameter", http.StatusBadRequest)
			return
		}
		if force {
			h.history.RequestForce()
		}
	}
	h.trigger(w, JobThumbnails)
}

func (h *Handlers) trigger(w http.ResponseWriter, job string) {
	if !h.jobs.Trigger(job) {
		writeJSONError(w, "job not configured: "+job, http.StatusNotFound)
		return
	}
	logging.Info("Triggered %s run via API", job)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"job":    job,
	})
}
