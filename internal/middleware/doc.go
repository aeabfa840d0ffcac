// Package middleware provides HTTP access logging and Prometheus request
// metrics for the status server.
package middleware
