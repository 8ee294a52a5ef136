package env

import (
	"os"
	"strings"
)

// Prefix namespaces the service's own variables.
const Prefix = "POSCATALOG_"

// Get returns the trimmed value of POSCATALOG_<key>, then of the bare key,
// or fallback when both are unset or blank.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
