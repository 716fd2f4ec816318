package session

import (
	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

const (
	msgConnectionClosed = "Connection closed."
	msgDisconnected     = "Disconnected from server."
)

// Reduce is the session reducer.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	if state.Closed {
		if cmd, ok := input.(cmdShutdown); ok {
			return state, []actor.Effect{effCompleteReply{Reply: cmd.Reply}}
		}
		return state, nil
	}

	switch in := input.(type) {
	case cmdSetIdentity:
		return reduceSetIdentity(state, in)
	case cmdInput:
		return reduceInput(state, in)
	case cmdResize:
		return reduceResize(state)
	case cmdShutdown:
		return reduceShutdown(state, in)

	case evConnOpened:
		return reduceConnOpened(state, in)
	case evConnClosed:
		return reduceConnClosed(state, in)
	case evConnError:
		return reduceConnError(state, in)
	case evMessage:
		return reduceMessage(state, in)
	case evTimerFired:
		return reduceTimerFired(state, in)
	default:
		return state, nil
	}
}

// resetSession drops the tunnel and any credential entry in progress.
func resetSession(state State) State {
	state.TunnelID = 0
	state.HasTunnel = false
	state.Mode = ModeDefault
	state.PendingUsername = ""
	return clearCredentials(state)
}

// teardown releases the active transport, if any, and marks the session
// disconnected.
func teardown(state State) (State, []actor.Effect) {
	var effects []actor.Effect
	if state.ConnActive {
		effects = append(effects,
			effStopHeartbeat{Gen: state.ConnGen},
			effDisconnect{Gen: state.ConnGen},
		)
	}
	state.Connected = false
	state.ConnActive = false
	return state, effects
}

func reduceSetIdentity(state State, cmd cmdSetIdentity) (State, []actor.Effect) {
	state = resetSession(state)
	effects := []actor.Effect{effSurfaceReset{}}

	state, released := teardown(state)
	effects = append(effects, released...)

	state.Identity = cmd.Identity
	if cmd.Identity == "" {
		return state, effects
	}

	state.ConnGen++
	state.ConnActive = true
	return state, append(effects, effConnect{Gen: state.ConnGen, Identity: state.Identity})
}

func reduceShutdown(state State, cmd cmdShutdown) (State, []actor.Effect) {
	state = resetSession(state)
	state, effects := teardown(state)
	state.Identity = ""
	state.Closed = true
	effects = append(effects,
		effCancelTimer{Name: resizeTimerName},
		effCompleteReply{Reply: cmd.Reply},
	)
	return state, effects
}

func (s State) isCurrent(gen int64) bool {
	return s.ConnActive && gen == s.ConnGen
}

func reduceConnOpened(state State, ev evConnOpened) (State, []actor.Effect) {
	if !state.isCurrent(ev.Gen) {
		return state, nil
	}
	state.Connected = true
	return state, []actor.Effect{
		heartbeatEffect(state),
		effOpenTunnel{Gen: state.ConnGen, Identity: state.Identity},
	}
}

func reduceConnClosed(state State, ev evConnClosed) (State, []actor.Effect) {
	if !state.isCurrent(ev.Gen) {
		return state, nil
	}
	state = resetSession(state)
	state, effects := teardown(state)
	effects = append(effects,
		effLog{Level: logger.LevelInfo, Message: "connection closed", Fields: logger.Fields{"gen": ev.Gen, "reason": ev.Reason}},
		effSurfaceReset{},
		writeln(msgDisconnected),
	)
	return state, effects
}

func reduceConnError(state State, ev evConnError) (State, []actor.Effect) {
	level := logger.LevelWarn
	if !state.isCurrent(ev.Gen) {
		level = logger.LevelDebug
	}
	return state, []actor.Effect{
		effLog{Level: level, Message: "connection error", Fields: logger.Fields{"gen": ev.Gen, "error": ev.Err}},
	}
}

func reduceMessage(state State, ev evMessage) (State, []actor.Effect) {
	if !state.isCurrent(ev.Gen) {
		return state, nil
	}

	switch web := ev.Msg.Web.(type) {
	case protocol.Error:
		return reduceServerError(state, web)
	case protocol.TunnelOpened:
		return reduceTunnelOpened(state, web)
	case protocol.TunnelClosed:
		return reduceTunnelClosed(state, web)
	case protocol.TunnelData:
		return reduceTunnelData(state, web)
	default:
		return state, []actor.Effect{
			effLog{Level: logger.LevelWarn, Message: "unexpected message", Fields: logger.Fields{"type": typeName(ev.Msg.Web)}},
		}
	}
}

func typeName(web protocol.Web) string {
	if web == nil {
		return "<nil>"
	}
	return web.Type()
}

func reduceServerError(state State, e protocol.Error) (State, []actor.Effect) {
	switch e.Kind {
	case protocol.KindGeneric:
		return state, []actor.Effect{
			effSurfaceReset{},
			write(e.Message + "\r\n"),
			effSurfaceFocus{},
		}

	case protocol.KindRequiresUsername:
		state.Mode = ModeUsername
		state.PendingUsername = ""
		state = clearCredentials(state)
		return state, []actor.Effect{
			effSurfaceReset{},
			write(promptUsername),
			effSurfaceFocus{},
		}

	case protocol.KindRequiresPassword:
		state.Mode = ModePassword
		state = clearCredentials(state)
		return state, []actor.Effect{
			effSurfaceReset{},
			write(promptPassword),
			effSurfaceFocus{},
		}

	default:
		return state, []actor.Effect{
			effLog{Level: logger.LevelWarn, Message: "unknown error kind", Fields: logger.Fields{"kind": e.Kind.String()}},
		}
	}
}

// strictMismatch reports whether a tunnel message should be dropped because
// it names a tunnel other than the open one.
func (s State) strictMismatch(sid uint32) bool {
	return s.StrictTunnelIDs && (!s.HasTunnel || s.TunnelID != sid)
}

func reduceTunnelOpened(state State, m protocol.TunnelOpened) (State, []actor.Effect) {
	if state.StrictTunnelIDs && state.HasTunnel && state.TunnelID != m.SID {
		return state, []actor.Effect{dropped("TunnelOpened", m.SID, state)}
	}

	state.TunnelID = m.SID
	state.HasTunnel = true
	state.PendingUsername = ""

	effects := []actor.Effect{effSurfaceReset{}}
	if resize, ok := resizeEffect(state); ok {
		effects = append(effects, resize)
	}
	return state, effects
}

func reduceTunnelClosed(state State, m protocol.TunnelClosed) (State, []actor.Effect) {
	if state.strictMismatch(m.SID) {
		return state, []actor.Effect{dropped("TunnelClosed", m.SID, state)}
	}
	state = resetSession(state)
	return state, []actor.Effect{effSurfaceReset{}, writeln(msgConnectionClosed)}
}

func reduceTunnelData(state State, m protocol.TunnelData) (State, []actor.Effect) {
	if state.strictMismatch(m.SID) {
		return state, []actor.Effect{dropped("TunnelData", m.SID, state)}
	}
	if len(m.Data) == 0 {
		return state, nil
	}
	return state, []actor.Effect{effSurfaceWrite{Data: []byte(m.Data)}}
}

func dropped(kind string, sid uint32, state State) effLog {
	return effLog{
		Level:   logger.LevelDebug,
		Message: "dropped message for foreign tunnel",
		Fields:  logger.Fields{"type": kind, "sid": sid, "tunnel": state.TunnelID, "has_tunnel": state.HasTunnel},
	}
}
