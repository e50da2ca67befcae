package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// testModeEnv is set by the root testing package. In test mode LoadConfig
// skips the .env file and the worker exits before connecting.
const testModeEnv = "LEDGER_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(err == nil && on)
}

// InTestMode reports whether LEDGER_TEST_MODE is enabled.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads LEDGER_TEST_MODE after t.Setenv.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
