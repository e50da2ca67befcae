// Package testing switches the process into ledger test mode. Import it for
// side effects from any test that builds configuration or a runtime.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
	"time"
)

var once sync.Once

// setup enables LEDGER_TEST_MODE and pins the local zone to UTC so
// calendar-date truncation of vouchers and periods is stable across hosts.
func setup() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
		_ = os.Setenv("TZ", "UTC")
		time.Local = time.UTC
	})
}

func init() {
	setup()
}

func TestMain(m *stdtesting.M) {
	setup()
	os.Exit(m.Run())
}
