package session

import (
	"context"
	"errors"
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
)

// Controller owns one terminal session. All methods are safe for concurrent
// use; every call is serialized through the session's mailbox.
type Controller struct {
	actor   *actor.Actor[State]
	runtime *Runtime
}

type controllerOptions struct {
	heartbeat time.Duration
	strict    bool
	clock     actor.Clock
	hooks     actor.Hooks[State]
	mailbox   int
}

// Option configures a Controller.
type Option func(*controllerOptions)

// WithHeartbeatInterval sets the configured heartbeat interval. Values at or
// below 15s are raised to 30s when the heartbeat starts.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *controllerOptions) { o.heartbeat = d }
}

// WithStrictTunnelIDs drops tunnel messages addressed to another tunnel.
func WithStrictTunnelIDs(strict bool) Option {
	return func(o *controllerOptions) { o.strict = strict }
}

// WithClock overrides the clock used for timers.
func WithClock(clock actor.Clock) Option {
	return func(o *controllerOptions) { o.clock = clock }
}

// WithHooks attaches actor hooks.
func WithHooks(hooks actor.Hooks[State]) Option {
	return func(o *controllerOptions) { o.hooks = hooks }
}

// WithMailboxSize sets the actor mailbox size.
func WithMailboxSize(n int) Option {
	return func(o *controllerOptions) { o.mailbox = n }
}

// NewController builds a stopped controller. Call Start before use.
func NewController(factory TransportFactory, surface Surface, opts ...Option) *Controller {
	o := controllerOptions{heartbeat: heartbeatDefault, clock: actor.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	rt := NewRuntime(factory, surface, o.clock)
	a := actor.New(
		NewState(o.heartbeat, o.strict),
		Reduce,
		rt,
		actor.WithHooks(o.hooks),
		actor.WithMailboxSize[State](o.mailbox),
	)
	rt.deliver = a.EnqueueWait
	return &Controller{actor: a, runtime: rt}
}

// Start launches the session loop.
func (c *Controller) Start() { c.actor.Start() }

// SetIdentity rebinds the session to identity. An empty identity disconnects.
func (c *Controller) SetIdentity(ctx context.Context, identity string) error {
	return c.enqueue(ctx, SetIdentity(identity))
}

// HandleInput delivers one keystroke token. It blocks while the mailbox is
// full so keystrokes are never dropped.
func (c *Controller) HandleInput(ctx context.Context, token string) error {
	return c.enqueue(ctx, Input(token))
}

// Resize reports a raw geometry change. Signals are coalesced by the
// debounce timer, so a dropped one on a full mailbox is harmless.
func (c *Controller) Resize() bool {
	return c.actor.Enqueue(Resize())
}

// Shutdown tears the session down and stops the loop.
func (c *Controller) Shutdown(ctx context.Context) error {
	reply := make(chan error, 1)
	err := c.enqueue(ctx, Shutdown(reply))
	if err == nil {
		select {
		case err = <-reply:
		case <-ctx.Done():
			err = ctx.Err()
		case <-c.actor.Done():
		}
	}
	c.actor.Stop()
	if errors.Is(err, ErrStopped) {
		return nil
	}
	return err
}

// State returns a snapshot of the session state.
func (c *Controller) State() State { return c.actor.State() }

// Done closes when the session loop exits.
func (c *Controller) Done() <-chan struct{} { return c.actor.Done() }

func (c *Controller) enqueue(ctx context.Context, in actor.Input) error {
	err := c.actor.EnqueueWait(ctx, in)
	if errors.Is(err, actor.ErrStopped) {
		return ErrStopped
	}
	return err
}
