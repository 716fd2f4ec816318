package session

import (
	"strings"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
)

const (
	promptUsername = "Enter your username: "
	promptPassword = "Enter your password: "

	msgAuthCancelled = "Authentication cancelled."
)

// secret is a credential buffer. Appends always copy, and wipe zeroes the
// bytes before dropping them.
type secret []byte

func (s secret) push(text string) secret {
	out := make(secret, len(s), len(s)+len(text))
	copy(out, s)
	return append(out, text...)
}

func (s secret) pop() secret {
	if len(s) == 0 {
		return s
	}
	out := make(secret, len(s)-1)
	copy(out, s)
	return out
}

func (s secret) wipe() secret {
	for i := range s {
		s[i] = 0
	}
	return nil
}

type tokenKind int

const (
	tokenIgnored tokenKind = iota
	tokenSubmit
	tokenCancel
	tokenErase
	tokenText
)

func classifyToken(token string) tokenKind {
	switch token {
	case "\r", "\n", "\r\n":
		return tokenSubmit
	case "\x03":
		return tokenCancel
	case "\x7f", "\b":
		return tokenErase
	}
	if token == "" {
		return tokenIgnored
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 0x20 || token[i] > 0x7e {
			return tokenIgnored
		}
	}
	return tokenText
}

// reduceCredentialInput handles one token while the session collects a
// username or password. Callers guarantee Mode is not ModeDefault.
func reduceCredentialInput(state State, token string) (State, []actor.Effect) {
	switch classifyToken(token) {
	case tokenSubmit:
		var effects []actor.Effect
		if state.Mode == ModeUsername {
			state, effects = submitUsername(state)
		} else {
			state, effects = submitPassword(state)
		}
		return state, append([]actor.Effect{write("\r\n")}, effects...)

	case tokenCancel:
		state, effects := cancelCredentials(state)
		return state, append([]actor.Effect{write("^C\r\n")}, effects...)

	case tokenErase:
		buf := state.credentialBuffer()
		if len(*buf) == 0 {
			return state, nil
		}
		*buf = buf.pop()
		return state, []actor.Effect{write("\b \b")}

	case tokenText:
		buf := state.credentialBuffer()
		*buf = buf.push(token)
		if state.Mode == ModePassword {
			return state, []actor.Effect{write(strings.Repeat("*", len(token)))}
		}
		return state, []actor.Effect{write(token)}

	default:
		return state, nil
	}
}

func submitUsername(state State) (State, []actor.Effect) {
	if !state.Connected {
		return state, nil
	}

	name := strings.TrimSpace(string(state.Username))
	if name == "" {
		state.Username = state.Username.wipe()
		return state, []actor.Effect{writeln(""), write(promptUsername)}
	}

	state.Mode = ModeDefault
	state.PendingUsername = name
	state = clearCredentials(state)
	return state, []actor.Effect{
		effOpenTunnel{Gen: state.ConnGen, Identity: state.Identity, Creds: Credentials{Username: name}},
	}
}

func submitPassword(state State) (State, []actor.Effect) {
	if !state.Connected {
		return state, nil
	}

	if len(state.Password) == 0 {
		return state, []actor.Effect{writeln(""), write(promptPassword)}
	}

	creds := Credentials{Username: state.PendingUsername, Password: string(state.Password)}
	state.Mode = ModeDefault
	state.PendingUsername = ""
	state = clearCredentials(state)
	return state, []actor.Effect{
		effOpenTunnel{Gen: state.ConnGen, Identity: state.Identity, Creds: creds},
	}
}

func cancelCredentials(state State) (State, []actor.Effect) {
	state.Mode = ModeDefault
	state.PendingUsername = ""
	state = clearCredentials(state)
	return state, []actor.Effect{effSurfaceReset{}, writeln(msgAuthCancelled)}
}

func clearCredentials(state State) State {
	state.Username = state.Username.wipe()
	state.Password = state.Password.wipe()
	return state
}

func (s *State) credentialBuffer() *secret {
	if s.Mode == ModePassword {
		return &s.Password
	}
	return &s.Username
}

func write(text string) effSurfaceWrite {
	return effSurfaceWrite{Data: []byte(text)}
}

func writeln(text string) effSurfaceWriteln {
	return effSurfaceWriteln{Text: text}
}
