package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrmo/phirepass-widgets/internal/actor"
	"github.com/dimitrmo/phirepass-widgets/internal/actor/actortest"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	actor.InputBase
	n int
}

type testEffect struct {
	actor.EffectBase
	n int
}

func sumReducer(state int, input actor.Input) (int, []actor.Effect) {
	ev, ok := input.(testEvent)
	if !ok {
		return state, nil
	}
	return state + ev.n, []actor.Effect{testEffect{n: ev.n}}
}

func TestActorProcessesInputsSequentially(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New[int](0, sumReducer, rt)
	a.Start()
	defer a.Stop()

	for i := 1; i <= 5; i++ {
		require.True(t, a.Enqueue(testEvent{n: i}), "enqueue %d", i)
	}

	require.Eventually(t, func() bool { return a.State() == 15 }, 2*time.Second, 10*time.Millisecond)
	require.Len(t, rt.Effects(), 5)
}

func TestActorEnqueueAfterStop(t *testing.T) {
	t.Parallel()

	rt := &actortest.FakeRuntime{}
	a := actor.New[int](0, sumReducer, rt)
	a.Start()
	a.Stop()

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("actor loop did not exit")
	}

	require.False(t, a.Enqueue(testEvent{n: 1}))
	require.ErrorIs(t, a.EnqueueWait(context.Background(), testEvent{n: 1}), actor.ErrStopped)
	require.Equal(t, 1, rt.Stops())
}

func TestActorEnqueueWaitBlocksUntilSpace(t *testing.T) {
	t.Parallel()

	// Not started: the mailbox of one fills immediately.
	a := actor.New[int](0, sumReducer, nil, actor.WithMailboxSize[int](1))
	require.True(t, a.Enqueue(testEvent{n: 1}))
	require.False(t, a.Enqueue(testEvent{n: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.EnqueueWait(ctx, testEvent{n: 2}), context.DeadlineExceeded)

	a.Start()
	defer a.Stop()
	require.NoError(t, a.EnqueueWait(context.Background(), testEvent{n: 2}))
	require.Eventually(t, func() bool { return a.State() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestActorHooksObserveTransitions(t *testing.T) {
	t.Parallel()

	transitions := make(chan [2]int, 4)
	a := actor.New[int](10, sumReducer, nil, actor.WithHooks(actor.Hooks[int]{
		OnTransition: func(prev, next int, _ actor.Input) {
			transitions <- [2]int{prev, next}
		},
	}))
	a.Start()
	defer a.Stop()

	require.True(t, a.Enqueue(testEvent{n: 5}))
	select {
	case tr := <-transitions:
		require.Equal(t, [2]int{10, 15}, tr)
	case <-time.After(2 * time.Second):
		t.Fatalf("no transition observed")
	}
}

func TestReplayFoldsInputs(t *testing.T) {
	t.Parallel()

	state, effects := actor.Replay(0, sumReducer, testEvent{n: 2}, testEvent{n: 3})
	require.Equal(t, 5, state)
	require.Len(t, effects, 2)
}

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	clock := actortest.NewFakeClock(time.Unix(0, 0))
	var fired []string
	clock.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "late") })
	clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	stopped := clock.AfterFunc(150*time.Millisecond, func() { fired = append(fired, "stopped") })

	require.True(t, stopped.Stop())
	require.False(t, stopped.Stop())
	require.Equal(t, 2, clock.Pending())

	clock.Advance(99 * time.Millisecond)
	require.Empty(t, fired)

	clock.Advance(200 * time.Millisecond)
	require.Equal(t, []string{"early", "late"}, fired)
	require.Zero(t, clock.Pending())
}

type panicEvent struct {
	actor.InputBase
}

func TestActorOnPanicEndsLoop(t *testing.T) {
	t.Parallel()

	recovered := make(chan any, 1)
	var seen []actor.Input
	var effects []actor.Effect
	reducer := func(state int, input actor.Input) (int, []actor.Effect) {
		if _, ok := input.(panicEvent); ok {
			panic("boom")
		}
		return sumReducer(state, input)
	}
	a := actor.New[int](0, reducer, nil, actor.WithHooks(actor.Hooks[int]{
		OnInput:   func(in actor.Input) { seen = append(seen, in) },
		OnEffects: func(effs []actor.Effect) { effects = append(effects, effs...) },
		OnPanic:   func(r any) { recovered <- r },
	}))

	require.True(t, a.Enqueue(testEvent{n: 4}))
	require.True(t, a.Enqueue(panicEvent{}))
	a.Start()

	select {
	case r := <-recovered:
		require.Equal(t, "boom", r)
	case <-time.After(2 * time.Second):
		t.Fatalf("panic not reported")
	}
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("actor loop did not exit after panic")
	}

	require.Len(t, seen, 2)
	require.Equal(t, []actor.Effect{testEffect{n: 4}}, effects)
	require.Equal(t, 4, a.State())
}
