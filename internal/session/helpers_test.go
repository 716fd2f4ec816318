package session

import (
	"strings"
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
)

// connectedState is a session bound to node-1 with tunnel 7 open.
func connectedState() State {
	s := NewState(30*time.Second, false)
	s.Identity = "node-1"
	s.ConnGen = 1
	s.ConnActive = true
	s.Connected = true
	s.TunnelID = 7
	s.HasTunnel = true
	return s
}

func effectsOf[T actor.Effect](effects []actor.Effect) []T {
	var out []T
	for _, eff := range effects {
		if e, ok := eff.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// rendered flattens surface effects into text. Resets render as "<reset>".
func rendered(effects []actor.Effect) string {
	var b strings.Builder
	for _, eff := range effects {
		switch e := eff.(type) {
		case effSurfaceReset:
			b.WriteString("<reset>")
		case effSurfaceWrite:
			b.Write(e.Data)
		case effSurfaceWriteln:
			b.WriteString(e.Text)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

func feed(state State, tokens ...string) (State, []actor.Effect) {
	inputs := make([]actor.Input, 0, len(tokens))
	for _, tok := range tokens {
		inputs = append(inputs, Input(tok))
	}
	return actor.Replay(state, Reduce, inputs...)
}
