package instance

import (
	"os"

	"github.com/angelmondragon/stockcast-backend/pkg/env"
)

const fallbackID = "local"

// GetID identifies the running process in logs: an explicit instance id, the
// platform dyno name, or the hostname.
func GetID() string {
	if id := env.First("", "STOCKCAST_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
