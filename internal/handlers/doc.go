// Package handlers provides the HTTP handlers of the serve mode status
// surface.
//
// It includes handlers for:
//   - Liveness and readiness probes
//   - The status document (job history, last reports, store totals)
//   - On-demand scan and thumbnail triggers
//   - Version information
package handlers
