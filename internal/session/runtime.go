package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

// Transport is one connection to the server. The session creates a new
// Transport per connection generation.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	StartHeartbeat(interval time.Duration)
	StopHeartbeat()
	OpenTunnel(identity string, creds Credentials) error
	SendTunnelData(identity string, tunnelID uint32, data []byte) error
	SendResize(identity string, tunnelID uint32, cols, rows int) error
}

// TransportEvents receives callbacks from a Transport. Implementations must
// not call back into the Transport synchronously.
type TransportEvents interface {
	OnOpen()
	OnClose(reason string)
	OnError(err error)
	OnMessage(msg protocol.Message)
}

// TransportFactory builds the transport for a connection to identity.
type TransportFactory func(identity string, events TransportEvents) (Transport, error)

// Surface is the terminal the session draws on.
type Surface interface {
	Reset()
	Write(p []byte)
	Writeln(text string)
	Focus()
	Fit()
	Cols() int
	Rows() int
}

// Runtime interprets session effects.
//
// Runtime never mutates session state. Transport callbacks and timer fires
// come back to the actor as inputs.
type Runtime struct {
	mu sync.Mutex

	factory TransportFactory
	surface Surface
	clock   actor.Clock

	// deliver, when set, is used for transport callbacks so that inbound
	// frames apply backpressure instead of being dropped on a full mailbox.
	deliver func(ctx context.Context, in actor.Input) error

	transports map[int64]Transport
	timers     map[string]actor.Timer
}

// NewRuntime returns a Runtime that dials through factory and draws on surface.
func NewRuntime(factory TransportFactory, surface Surface, clock actor.Clock) *Runtime {
	if clock == nil {
		clock = actor.RealClock{}
	}
	return &Runtime{
		factory:    factory,
		surface:    surface,
		clock:      clock,
		transports: make(map[int64]Transport),
		timers:     make(map[string]actor.Timer),
	}
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch e := eff.(type) {
		case effConnect:
			r.connect(ctx, e, emit)
		case effDisconnect:
			r.disconnect(e.Gen)
		case effStartHeartbeat:
			if t := r.transport(e.Gen); t != nil {
				t.StartHeartbeat(e.Interval)
			}
		case effStopHeartbeat:
			if t := r.transport(e.Gen); t != nil {
				t.StopHeartbeat()
			}
		case effOpenTunnel:
			r.openTunnel(e)
		case effSendTunnelData:
			r.sendTunnelData(e)
		case effSendResize:
			r.sendResize(e)
		case effSurfaceReset:
			r.surface.Reset()
		case effSurfaceWrite:
			r.surface.Write(e.Data)
		case effSurfaceWriteln:
			r.surface.Writeln(e.Text)
		case effSurfaceFocus:
			r.surface.Focus()
		case effSurfaceFit:
			r.surface.Fit()
		case effStartTimer:
			r.startTimer(ctx, e, emit)
		case effCancelTimer:
			r.cancelTimer(e.Name)
		case effLog:
			logger.Log(e.Level, e.Fields, e.Message)
		case effCompleteReply:
			if e.Reply != nil {
				select {
				case e.Reply <- e.Err:
				default:
				}
			}
		default:
			// Unknown effect: ignore.
		}
	}
}

// Stop implements actor.Runtime.
func (r *Runtime) Stop() {
	r.mu.Lock()
	transports := r.transports
	r.transports = make(map[int64]Transport)
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
	r.mu.Unlock()

	for gen, t := range transports {
		t.StopHeartbeat()
		if err := t.Disconnect(); err != nil {
			logger.WithFields(logger.Fields{"gen": gen}).Debugf("disconnect on stop: %v", err)
		}
	}
}

func (r *Runtime) transport(gen int64) Transport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transports[gen]
}

// genEvents tags transport callbacks with the generation they belong to.
type genEvents struct {
	gen     int64
	ctx     context.Context
	emit    func(actor.Input)
	deliver func(ctx context.Context, in actor.Input) error
}

func (g genEvents) send(in actor.Input) {
	if g.deliver != nil {
		_ = g.deliver(g.ctx, in)
		return
	}
	g.emit(in)
}

func (g genEvents) OnOpen()                        { g.send(evConnOpened{Gen: g.gen}) }
func (g genEvents) OnClose(reason string)          { g.send(evConnClosed{Gen: g.gen, Reason: reason}) }
func (g genEvents) OnError(err error)              { g.send(evConnError{Gen: g.gen, Err: err}) }
func (g genEvents) OnMessage(msg protocol.Message) { g.send(evMessage{Gen: g.gen, Msg: msg}) }

func (r *Runtime) connect(ctx context.Context, eff effConnect, emit func(actor.Input)) {
	r.mu.Lock()
	events := genEvents{gen: eff.Gen, ctx: ctx, emit: emit, deliver: r.deliver}
	r.mu.Unlock()

	t, err := r.factory(eff.Identity, events)
	if err != nil {
		go func() {
			events.OnError(fmt.Errorf("create transport: %w", err))
			events.OnClose(err.Error())
		}()
		return
	}

	r.mu.Lock()
	prev := r.transports[eff.Gen]
	r.transports[eff.Gen] = t
	r.mu.Unlock()
	if prev != nil {
		_ = prev.Disconnect()
	}

	go func() {
		if err := t.Connect(ctx); err != nil {
			events.OnError(err)
			events.OnClose(err.Error())
		}
	}()
}

func (r *Runtime) disconnect(gen int64) {
	r.mu.Lock()
	t := r.transports[gen]
	delete(r.transports, gen)
	r.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Disconnect(); err != nil {
		logger.WithFields(logger.Fields{"gen": gen}).Debugf("disconnect: %v", err)
	}
}

func (r *Runtime) openTunnel(eff effOpenTunnel) {
	t := r.transport(eff.Gen)
	if t == nil {
		logger.WithFields(logger.Fields{"gen": eff.Gen}).Warnf("open tunnel: %v", ErrNoTransport)
		return
	}
	if err := t.OpenTunnel(eff.Identity, eff.Creds); err != nil {
		logger.WithFields(logger.Fields{
			"gen":      eff.Gen,
			"node":     eff.Identity,
			"username": eff.Creds.Username != "",
			"password": eff.Creds.Password != "",
		}).Warnf("open tunnel: %v", err)
	}
}

func (r *Runtime) sendTunnelData(eff effSendTunnelData) {
	t := r.transport(eff.Gen)
	if t == nil {
		return
	}
	if err := t.SendTunnelData(eff.Identity, eff.TunnelID, eff.Data); err != nil {
		logger.WithFields(logger.Fields{"gen": eff.Gen, "sid": eff.TunnelID}).Warnf("send tunnel data: %v", err)
	}
}

func (r *Runtime) sendResize(eff effSendResize) {
	t := r.transport(eff.Gen)
	if t == nil || !t.IsConnected() {
		return
	}
	cols, rows := r.surface.Cols(), r.surface.Rows()
	if cols <= 0 || rows <= 0 {
		return
	}
	if err := t.SendResize(eff.Identity, eff.TunnelID, cols, rows); err != nil {
		logger.WithFields(logger.Fields{"gen": eff.Gen, "sid": eff.TunnelID}).Warnf("send resize: %v", err)
	}
}

// startTimer schedules a single named timer and emits evTimerFired when it
// fires. Starting a name that is already pending replaces it.
func (r *Runtime) startTimer(ctx context.Context, eff effStartTimer, emit func(actor.Input)) {
	if eff.Name == "" || eff.After <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.timers[eff.Name]; prev != nil {
		prev.Stop()
	}
	var self actor.Timer
	self = r.clock.AfterFunc(eff.After, func() {
		r.mu.Lock()
		if r.timers[eff.Name] == self {
			delete(r.timers, eff.Name)
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
		}
		emit(evTimerFired{Name: eff.Name})
	})
	r.timers[eff.Name] = self
}

func (r *Runtime) cancelTimer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.timers[name]; t != nil {
		t.Stop()
	}
	delete(r.timers, name)
}
