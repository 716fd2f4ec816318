//go:build darwin || linux

package terminal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWatchResizeFiresOnSIGWINCH(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchResize(ctx, func() { calls.Add(1) })
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		_ = unix.Kill(unix.Getpid(), unix.SIGWINCH)
		return calls.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WatchResize did not return after cancel")
	}
}
