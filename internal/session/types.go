package session

import (
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

// Mode selects where keystrokes go.
type Mode string

const (
	// ModeDefault forwards keystrokes to the open tunnel.
	ModeDefault Mode = "default"
	// ModeUsername collects a username for the next tunnel request.
	ModeUsername Mode = "username"
	// ModePassword collects a password for the next tunnel request.
	ModePassword Mode = "password"
)

// Credentials accompany a tunnel request. Both fields are optional.
type Credentials struct {
	Username string
	Password string
}

// State is the loop-owned state of one terminal session.
type State struct {
	// Identity is the node the session is bound to. Empty means idle.
	Identity string

	// TunnelID is meaningful only while HasTunnel is set.
	TunnelID  uint32
	HasTunnel bool

	// Connected is set between the transport's open and close callbacks.
	Connected bool

	// ConnGen increments for every transport the session creates. Transport
	// events carry the generation so events from replaced transports are
	// dropped.
	ConnGen int64
	// ConnActive is set while a transport exists for ConnGen.
	ConnActive bool

	Mode Mode

	Username secret
	Password secret

	// PendingUsername holds the submitted username while the server asks for
	// a password.
	PendingUsername string

	// HeartbeatInterval is the configured interval before flooring.
	HeartbeatInterval time.Duration

	// StrictTunnelIDs drops tunnel messages whose sid does not match TunnelID.
	StrictTunnelIDs bool

	// Closed is set once shutdown has been processed.
	Closed bool
}

// NewState returns the idle state for the given settings.
func NewState(heartbeat time.Duration, strict bool) State {
	return State{
		Mode:              ModeDefault,
		HeartbeatInterval: heartbeat,
		StrictTunnelIDs:   strict,
	}
}

// Inputs

// Event is a marker interface for events consumed by the session reducer.
type Event interface {
	actor.Input
	isSessionEvent()
}

// Command is a marker interface for commands consumed by the session reducer.
type Command interface {
	actor.Input
	isSessionCommand()
}

// cmdSetIdentity rebinds the session to a node, or unbinds it when empty.
type cmdSetIdentity struct {
	actor.InputBase
	Identity string
}

func (cmdSetIdentity) isSessionCommand() {}

// cmdInput is one keystroke token from the terminal.
type cmdInput struct {
	actor.InputBase
	Token string
}

func (cmdInput) isSessionCommand() {}

// cmdResize is a raw geometry change notification.
type cmdResize struct {
	actor.InputBase
}

func (cmdResize) isSessionCommand() {}

// cmdShutdown tears the session down.
type cmdShutdown struct {
	actor.InputBase
	Reply chan error
}

func (cmdShutdown) isSessionCommand() {}

// Events emitted by the runtime back into the reducer.

type evConnOpened struct {
	actor.InputBase
	Gen int64
}

func (evConnOpened) isSessionEvent() {}

type evConnClosed struct {
	actor.InputBase
	Gen    int64
	Reason string
}

func (evConnClosed) isSessionEvent() {}

type evConnError struct {
	actor.InputBase
	Gen int64
	Err error
}

func (evConnError) isSessionEvent() {}

type evMessage struct {
	actor.InputBase
	Gen int64
	Msg protocol.Message
}

func (evMessage) isSessionEvent() {}

type evTimerFired struct {
	actor.InputBase
	Name string
}

func (evTimerFired) isSessionEvent() {}

// Effects

// Effect is a marker interface for effects emitted by the reducer.
type Effect interface {
	actor.Effect
	isSessionEffect()
}

// effConnect creates the transport for Gen and dials it.
type effConnect struct {
	actor.EffectBase
	Gen      int64
	Identity string
}

func (effConnect) isSessionEffect() {}

// effDisconnect releases the transport for Gen.
type effDisconnect struct {
	actor.EffectBase
	Gen int64
}

func (effDisconnect) isSessionEffect() {}

type effStartHeartbeat struct {
	actor.EffectBase
	Gen      int64
	Interval time.Duration
}

func (effStartHeartbeat) isSessionEffect() {}

type effStopHeartbeat struct {
	actor.EffectBase
	Gen int64
}

func (effStopHeartbeat) isSessionEffect() {}

type effOpenTunnel struct {
	actor.EffectBase
	Gen      int64
	Identity string
	Creds    Credentials
}

func (effOpenTunnel) isSessionEffect() {}

type effSendTunnelData struct {
	actor.EffectBase
	Gen      int64
	Identity string
	TunnelID uint32
	Data     []byte
}

func (effSendTunnelData) isSessionEffect() {}

// effSendResize reports the surface geometry. The runtime skips it when the
// surface has no positive size.
type effSendResize struct {
	actor.EffectBase
	Gen      int64
	Identity string
	TunnelID uint32
}

func (effSendResize) isSessionEffect() {}

type effSurfaceReset struct {
	actor.EffectBase
}

func (effSurfaceReset) isSessionEffect() {}

type effSurfaceWrite struct {
	actor.EffectBase
	Data []byte
}

func (effSurfaceWrite) isSessionEffect() {}

type effSurfaceWriteln struct {
	actor.EffectBase
	Text string
}

func (effSurfaceWriteln) isSessionEffect() {}

type effSurfaceFocus struct {
	actor.EffectBase
}

func (effSurfaceFocus) isSessionEffect() {}

type effSurfaceFit struct {
	actor.EffectBase
}

func (effSurfaceFit) isSessionEffect() {}

type effStartTimer struct {
	actor.EffectBase
	Name  string
	After time.Duration
}

func (effStartTimer) isSessionEffect() {}

type effCancelTimer struct {
	actor.EffectBase
	Name string
}

func (effCancelTimer) isSessionEffect() {}

// effLog carries a log line out of the reducer.
type effLog struct {
	actor.EffectBase
	Level   logger.Level
	Message string
	Fields  logger.Fields
}

func (effLog) isSessionEffect() {}

type effCompleteReply struct {
	actor.EffectBase
	Reply chan error
	Err   error
}

func (effCompleteReply) isSessionEffect() {}
