package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogHooksOnlyReportVisibleChanges(t *testing.T) {
	t.Parallel()

	base := connectedState()

	typing := base
	typing.Mode = ModeUsername
	typed := typing
	typed.Username = secret("ali")
	require.True(t, changed(base, typing))
	require.False(t, changed(typing, typed), "buffer edits are not transitions")

	closed := base
	closed.HasTunnel = false
	require.True(t, changed(base, closed))

	hooks := LogHooks()
	require.NotNil(t, hooks.OnTransition)
	require.NotNil(t, hooks.OnPanic)
	hooks.OnTransition(base, typing, cmdInput{Token: "x"})
}

func TestControllerWithLogHooks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithHooks(LogHooks()))
	require.NoError(t, h.ctl.SetIdentity(context.Background(), "node-1"))
	h.open(h.transport(0))
	h.waitFor(func() bool { return h.ctl.State().Connected })
}
