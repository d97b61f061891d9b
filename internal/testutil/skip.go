// Package testutil provides testing utilities.
package testutil

import (
	"os"
	"testing"
)

// SkipRemoteTests skips the test unless a live backend is configured.
// Use this for tests that talk to a real REST backend.
//
// Run them with: RUN_REMOTE_TESTS=1 FARRIERLY_REMOTE_URL=... go test ./...
func SkipRemoteTests(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_REMOTE_TESTS") == "" || os.Getenv("FARRIERLY_REMOTE_URL") == "" {
		t.Skip("Skipping remote test (set RUN_REMOTE_TESTS=1 and FARRIERLY_REMOTE_URL to run)")
	}
}
