// Package server implements the relay daemon: certificate publication
// and per-recipient envelope queues, with in-memory and Redis backends.
package server
