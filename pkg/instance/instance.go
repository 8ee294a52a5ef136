package instance

import (
	"os"
	"strings"
)

const envInstanceID = "POSCATALOG_INSTANCE_ID"

// ID identifies this process in logs and lock ownership. It prefers
// POSCATALOG_INSTANCE_ID, then the hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(envInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
