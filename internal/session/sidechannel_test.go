package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatInterval(t *testing.T) {
	t.Parallel()

	require.Equal(t, 30*time.Second, HeartbeatInterval(10*time.Second))
	require.Equal(t, 30*time.Second, HeartbeatInterval(15*time.Second))
	require.Equal(t, 30*time.Second, HeartbeatInterval(0))
	require.Equal(t, 16*time.Second, HeartbeatInterval(16*time.Second))
	require.Equal(t, 60*time.Second, HeartbeatInterval(60*time.Second))
}

func TestResize_RestartsDebounce(t *testing.T) {
	t.Parallel()

	_, effects := Reduce(NewState(0, false), cmdResize{})
	require.Equal(t, []effCancelTimer{{Name: resizeTimerName}}, effectsOf[effCancelTimer](effects))
	require.Equal(t, []effStartTimer{{Name: resizeTimerName, After: 100 * time.Millisecond}}, effectsOf[effStartTimer](effects))
}

func TestResizeTimer_GuardedByTunnel(t *testing.T) {
	t.Parallel()

	noTunnel := connectedState()
	noTunnel.HasTunnel = false
	disconnected := connectedState()
	disconnected.Connected = false

	for name, state := range map[string]State{"no tunnel": noTunnel, "disconnected": disconnected, "idle": NewState(0, false)} {
		_, effects := Reduce(state, evTimerFired{Name: resizeTimerName})
		require.Len(t, effectsOf[effSurfaceFit](effects), 1, name)
		require.Empty(t, effectsOf[effSendResize](effects), name)
	}

	_, effects := Reduce(connectedState(), evTimerFired{Name: resizeTimerName})
	require.Equal(t, []effSendResize{{Gen: 1, Identity: "node-1", TunnelID: 7}}, effectsOf[effSendResize](effects))

	_, effects = Reduce(connectedState(), evTimerFired{Name: "other"})
	require.Empty(t, effects)
}

func TestRouter_PassthroughOnlyWithTunnel(t *testing.T) {
	t.Parallel()

	_, effects := feed(connectedState(), "ls\r", "\x1b[A")
	sends := effectsOf[effSendTunnelData](effects)
	require.Len(t, sends, 2)
	require.Equal(t, []byte("ls\r"), sends[0].Data)
	require.Equal(t, []byte("\x1b[A"), sends[1].Data)
	require.Equal(t, uint32(7), sends[0].TunnelID)

	idle := connectedState()
	idle.HasTunnel = false
	_, effects = feed(idle, "ls\r")
	require.Empty(t, effects)
}

func TestInterleaving_TunnelClosedBeatsPendingSubmit(t *testing.T) {
	t.Parallel()

	state, _ := feed(usernameState(), "alice")
	state, _ = Reduce(state, msg(protocolTunnelClosed(7)))
	state, effects := feed(state, "\r")

	require.Equal(t, ModeDefault, state.Mode)
	require.Empty(t, effectsOf[effOpenTunnel](effects))
	require.Empty(t, effects)
}
