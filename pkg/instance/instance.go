package instance

import "os"

const fallbackID = "tradelink-0"

// GetID identifies the running process in logs and lock ownership. WORKER_ID
// wins, then the platform dyno name, then the host name.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
