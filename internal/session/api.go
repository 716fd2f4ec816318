package session

import (
	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
)

// SetIdentity returns a command input that binds the session to identity.
// An empty identity unbinds it.
func SetIdentity(identity string) actor.Input {
	return cmdSetIdentity{Identity: identity}
}

// Input returns a command input carrying one keystroke token.
func Input(token string) actor.Input {
	return cmdInput{Token: token}
}

// Resize returns a command input for a raw geometry change.
func Resize() actor.Input {
	return cmdResize{}
}

// Shutdown returns a command input that tears the session down. If reply is
// non-nil it is completed once teardown effects have run.
func Shutdown(reply chan error) actor.Input {
	return cmdShutdown{Reply: reply}
}

// ConnOpened returns an event input reporting that connection gen opened.
func ConnOpened(gen int64) actor.Input {
	return evConnOpened{Gen: gen}
}

// ConnClosed returns an event input reporting that connection gen closed.
func ConnClosed(gen int64, reason string) actor.Input {
	return evConnClosed{Gen: gen, Reason: reason}
}

// Message returns an event input carrying a protocol message from
// connection gen.
func Message(gen int64, msg protocol.Message) actor.Input {
	return evMessage{Gen: gen, Msg: msg}
}

// TimerFired returns an event input for an expired named timer.
func TimerFired(name string) actor.Input {
	return evTimerFired{Name: name}
}
