//go:build !(darwin || linux)

package terminal

import "context"

// WatchResize calls fn once and waits for ctx. Platforms without SIGWINCH
// never report later changes.
func WatchResize(ctx context.Context, fn func()) {
	fn()
	<-ctx.Done()
}
