// Package testutil provides shared test helpers for tapedeck packages.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for worker and session signals.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for asserting that something does not happen.
	ShortTestTimeout = 100 * time.Millisecond
)

// WaitForChannel waits for a signal on the channel or fails after timeout.
// Use this for done channels and running signals.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// AssertNoSignal fails if ch fires within timeout.
func AssertNoSignal(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
		require.Fail(t, msg)
	case <-time.After(timeout):
	}
}
