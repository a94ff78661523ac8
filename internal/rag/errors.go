package rag

import "errors"

// Sentinel errors surfaced through the crawl manager's public contract.
var (
	// ErrAlreadyRunning is returned when a crawl is started for a domain
	// that already has a live job.
	ErrAlreadyRunning = errors.New("crawl already running for domain")

	// ErrNotFound is returned by stop/status for an unknown domain.
	ErrNotFound = errors.New("no crawl job for domain")
)
