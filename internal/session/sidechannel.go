package session

import (
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
)

const (
	resizeTimerName = "resize"
	resizeDebounce  = 100 * time.Millisecond

	heartbeatMinimum = 15 * time.Second
	heartbeatDefault = 30 * time.Second
)

// HeartbeatInterval returns the interval actually used for a configured one.
// Anything at or below 15s is raised to 30s.
func HeartbeatInterval(configured time.Duration) time.Duration {
	if configured <= heartbeatMinimum {
		return heartbeatDefault
	}
	return configured
}

// reduceResize restarts the debounce window on every raw resize signal.
func reduceResize(state State) (State, []actor.Effect) {
	return state, []actor.Effect{
		effCancelTimer{Name: resizeTimerName},
		effStartTimer{Name: resizeTimerName, After: resizeDebounce},
	}
}

func reduceTimerFired(state State, ev evTimerFired) (State, []actor.Effect) {
	if ev.Name != resizeTimerName {
		return state, nil
	}
	effects := []actor.Effect{effSurfaceFit{}}
	if resize, ok := resizeEffect(state); ok {
		effects = append(effects, resize)
	}
	return state, effects
}

// resizeEffect reports the current geometry when a tunnel is open on a live
// connection. Teardown never cancels the debounce timer; this guard makes a
// late fire harmless.
func resizeEffect(state State) (effSendResize, bool) {
	if !state.HasTunnel || !state.Connected {
		return effSendResize{}, false
	}
	return effSendResize{Gen: state.ConnGen, Identity: state.Identity, TunnelID: state.TunnelID}, true
}

func heartbeatEffect(state State) effStartHeartbeat {
	return effStartHeartbeat{Gen: state.ConnGen, Interval: HeartbeatInterval(state.HeartbeatInterval)}
}
