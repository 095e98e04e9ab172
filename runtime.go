package filterdetect

import (
	"os"
	"sync/atomic"
)

// FuzzingEnvVar enables fuzzing mode at process start when set to "1" or "true".
const FuzzingEnvVar = "FILTERDETECT_FUZZING"

var (
	fuzzing  atomic.Bool
	embedded atomic.Bool
)

func init() {
	switch os.Getenv(FuzzingEnvVar) {
	case "1", "true", "TRUE":
		fuzzing.Store(true)
	}
}

// SetFuzzing toggles deterministic fuzzing mode. The filter cache ignores configuration in it.
func SetFuzzing(on bool) { fuzzing.Store(on) }

// IsFuzzing reports whether fuzzing mode is on.
func IsFuzzing() bool { return fuzzing.Load() }

// SetEmbedded toggles the restricted embedded display mode.
func SetEmbedded(on bool) { embedded.Store(on) }

// IsEmbedded reports whether embedded mode is on.
func IsEmbedded() bool { return embedded.Load() }
