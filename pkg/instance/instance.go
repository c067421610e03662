package instance

import "os"

// GetID returns the worker replica identifier, falling back to the hostname.
func GetID() string {
	if id := os.Getenv("QUOTEFLOW_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
