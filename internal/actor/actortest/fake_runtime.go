// Package actortest provides test doubles for actor-driven code.
package actortest

import (
	"context"
	"sync"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
)

// FakeRuntime records the effects handed to it and never emits follow-ups.
type FakeRuntime struct {
	mu      sync.Mutex
	effects []actor.Effect
	stops   int
}

var _ actor.Runtime = (*FakeRuntime)(nil)

// HandleEffects implements actor.Runtime.
func (r *FakeRuntime) HandleEffects(_ context.Context, effects []actor.Effect, _ func(actor.Input)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effects...)
}

// Stop implements actor.Runtime.
func (r *FakeRuntime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

// Stops returns how many times Stop was called.
func (r *FakeRuntime) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

// Effects returns a copy of the recorded effects.
func (r *FakeRuntime) Effects() []actor.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actor.Effect(nil), r.effects...)
}
