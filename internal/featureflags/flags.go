package featureflags

import (
	"os"
	"strings"
)

// BatchApply exposes the batch document endpoint (FLAG_BATCH_APPLY)
const BatchApply = "batch_apply"

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
