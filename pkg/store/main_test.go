package store

import (
	"testing"

	"github.com/charmbracelet/log"
	"go.uber.org/goleak"
)

// TestMain fails the package if a Batcher flush loop outlives its test.
func TestMain(m *testing.M) {
	log.SetLevel(log.ErrorLevel)
	goleak.VerifyTestMain(m)
}
