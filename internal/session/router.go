package session

import "github.com/dimitrmo/phirepass-widgets/internal/actor"

// reduceInput routes a keystroke token by Mode alone.
func reduceInput(state State, cmd cmdInput) (State, []actor.Effect) {
	if cmd.Token == "" {
		return state, nil
	}
	switch state.Mode {
	case ModeUsername, ModePassword:
		return reduceCredentialInput(state, cmd.Token)
	default:
		return forwardToTunnel(state, cmd.Token)
	}
}

// forwardToTunnel passes the token through verbatim. Tokens typed before a
// tunnel exists are dropped.
func forwardToTunnel(state State, token string) (State, []actor.Effect) {
	if !state.Connected || !state.HasTunnel {
		return state, nil
	}
	return state, []actor.Effect{effSendTunnelData{
		Gen:      state.ConnGen,
		Identity: state.Identity,
		TunnelID: state.TunnelID,
		Data:     []byte(token),
	}}
}
