//go:build !windows

package gogine

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunOSInterrupt sends SIGTERM to the test process to unblock the
// default interrupt source.
func TestRunOSInterrupt(t *testing.T) {
	// Keep SIGTERM from killing the test binary if it lands before the
	// runner's listener is installed.
	guard := make(chan os.Signal, 8)
	signal.Notify(guard, syscall.SIGTERM)
	defer signal.Stop(guard)

	state, logger := newTestState(t)
	log := &callLog{}
	require.NoError(t, state.RegisterSystem("platform", newRecording("platform", log)))

	done := runAsync(context.Background(), NewRunner(state))
	require.Eventually(t, func() bool {
		return state.Shutdown().SubscriberCount() > 0
	}, 2*time.Second, time.Millisecond)

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)

	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		require.NoError(t, p.Signal(syscall.SIGTERM))
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, []string{"platform.startup", "platform.shutdown"}, log.all())
			assert.True(t, logger.has("INFO", "Interrupt received, shutting down"))
			return
		case <-deadline:
			t.Fatal("timeout waiting for Run to return")
		case <-ticker.C:
		}
	}
}
