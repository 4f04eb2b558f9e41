package instance

import (
	"os"

	"github.com/angelmondragon/inventory-service/pkg/env"
)

const fallbackID = "local"

// GetID identifies the running process: INVENTORY_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func GetID() string {
	if id := env.First("INVENTORY_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
