// Package testing forces test mode before any package init runs side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("OPSDECK_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain keeps go test happy when the package is imported blank.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
