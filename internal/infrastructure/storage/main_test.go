package storage

import (
	"os"
	"testing"

	"github.com/theuselessai/pipelit/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithEmbeddedDB(m))
}
