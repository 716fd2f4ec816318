//go:build darwin || linux

package terminal

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// WatchResize calls fn once, then on every SIGWINCH until ctx is done.
func WatchResize(ctx context.Context, fn func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGWINCH)
	defer signal.Stop(ch)

	fn()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			fn()
		}
	}
}
